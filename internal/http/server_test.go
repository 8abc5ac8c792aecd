package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fitcoach-backend-go/internal/config"
	"fitcoach-backend-go/internal/db"
	"fitcoach-backend-go/internal/migrations"
	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"
	"fitcoach-backend-go/internal/telemetry/metrics"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-redis/redis_rate/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))
}

type testServer struct {
	*Server
	handler http.Handler
}

func newTestServer(t *testing.T, deps Deps) *testServer {
	t.Helper()
	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Apply(context.Background(), database))

	cfg := config.Config{
		JWTSecret:           "test-secret",
		JWTIssuer:           "fitcoach-test",
		AccessTTLSeconds:    900,
		RefreshTTLSeconds:   3600,
		MediaStoragePath:    t.TempDir(),
		MaxVideoBytes:       1 << 20,
		StripeWebhookSecret: "whsec_test",
		AIRateLimitPerMin:   10,
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewTestManager()
	}
	s := NewServer(database, cfg, deps)
	return &testServer{Server: s, handler: s.Router(context.Background())}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

// signIn stores a user with the given role and returns it with an access token.
func (ts *testServer) signIn(t *testing.T, role string) (models.User, string) {
	t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:                 gofakeit.UUID(),
		Email:              gofakeit.Email(),
		PasswordHash:       "x",
		FirstName:          gofakeit.FirstName(),
		LastName:           gofakeit.LastName(),
		FitnessLevel:       "beginner",
		Role:               role,
		SubscriptionStatus: models.SubscriptionInactive,
		Preferences:        models.DefaultPreferences(),
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	require.NoError(t, services.InsertUser(context.Background(), ts.DB, u))
	pair, err := ts.Tokens.IssuePair(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return u, pair.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func firstError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	decodeBody(t, rec, &body)
	require.NotEmpty(t, body.Errors)
	return body.Errors[0].Message
}

func TestHealth(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	ts := newTestServer(t, Deps{Now: func() time.Time { return fixed }})

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
		Live      int       `json:"live"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, fixed, body.Timestamp)
	assert.Zero(t, body.Live)
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t, Deps{})
	email := gofakeit.Email()

	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email: email, Password: "s3cret-pass", FirstName: "Dana", LastName: "Reyes",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var registered TokenResponse
	decodeBody(t, rec, &registered)
	assert.NotEmpty(t, registered.AccessToken)
	assert.Equal(t, models.RoleFree, registered.User.Role)

	rec = ts.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{
		Email: email, Password: "s3cret-pass", FirstName: "Dana", LastName: "Reyes",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already exists with this email", firstError(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: "s3cret-pass"})
	require.Equal(t, http.StatusOK, rec.Code)
	var login TokenResponse
	decodeBody(t, rec, &login)

	rec = ts.do(t, http.MethodGet, "/api/auth/me", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me struct {
		User UserDTO `json:"user"`
	}
	decodeBody(t, rec, &me)
	assert.Equal(t, email, me.User.Email)
	assert.NotNil(t, me.User.LastLoginAt)

	rec = ts.do(t, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: login.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, Deps{})

	rec := ts.do(t, http.MethodGet, "/api/workouts/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access token required", firstError(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/workouts/", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", firstError(t, rec))

	user, token := ts.signIn(t, models.RoleFree)
	require.NoError(t, services.SetUserActive(context.Background(), ts.DB, user.ID, false))
	rec = ts.do(t, http.MethodGet, "/api/workouts/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	ts := newTestServer(t, Deps{})
	_, member := ts.signIn(t, models.RolePremium)
	_, admin := ts.signIn(t, models.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/api/admin/users", member, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions", firstError(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/admin/users", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeAI struct{}

func (fakeAI) GenerateWorkout(context.Context, services.WorkoutPlanRequest) (services.GeneratedWorkout, error) {
	sets, reps := 3, 10
	return services.GeneratedWorkout{
		Name:      "Quick push",
		Category:  "strength",
		Exercises: []services.GeneratedExercise{{Name: "Push-up", Sets: &sets, Reps: &reps}},
	}, nil
}

func (fakeAI) AnalyzeForm(context.Context, services.FormAnalysisRequest) (services.FormAnalysisResult, error) {
	return services.FormAnalysisResult{}, errors.New("not used")
}

func (fakeAI) CoachingFeedback(context.Context, services.CoachingRequest) (json.RawMessage, error) {
	return json.RawMessage(`{"summary":"Solid"}`), nil
}

func (fakeAI) PredictProgress(context.Context, services.ProgressRequest) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func TestRequireFeature_GatesAIRoutes(t *testing.T) {
	ts := newTestServer(t, Deps{AI: fakeAI{}, Entitlements: services.NewEntitlements(1, 60)})
	_, free := ts.signIn(t, models.RoleFree)
	_, premium := ts.signIn(t, models.RolePremium)

	rec := ts.do(t, http.MethodPost, "/api/ai/generate-workout", free, map[string]int{"duration": 30})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Feature not available in your plan: ai_coaching", firstError(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/ai/generate-workout", premium, map[string]int{"duration": 30})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Workout WorkoutDTO `json:"workout"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "Quick push", body.Workout.Name)
	assert.Equal(t, services.CreatedByAI, body.Workout.CreatedBy)
}

func TestAIUnavailableWithoutClient(t *testing.T) {
	ts := newTestServer(t, Deps{})
	_, elite := ts.signIn(t, models.RoleElite)

	rec := ts.do(t, http.MethodGet, "/api/ai/predict-progress", elite, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "AI service is not configured", firstError(t, rec))
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, redis_rate.Limit) (*redis_rate.Result, error) {
	return &redis_rate.Result{Allowed: 0, RetryAfter: 20 * time.Second}, nil
}

func TestRateLimitedAIRoutes(t *testing.T) {
	m := metrics.NewTestManager()
	ts := newTestServer(t, Deps{AI: fakeAI{}, Limiter: denyLimiter{}, Metrics: m})
	_, premium := ts.signIn(t, models.RolePremium)

	rec := ts.do(t, http.MethodPost, "/api/ai/generate-workout", premium, map[string]int{"duration": 30})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "21", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRateLimitedRequests))
}

func TestDashboard_AdvancedTimeframeNeedsFeature(t *testing.T) {
	ts := newTestServer(t, Deps{})
	_, free := ts.signIn(t, models.RoleFree)
	_, premium := ts.signIn(t, models.RolePremium)

	rec := ts.do(t, http.MethodGet, "/api/analytics/dashboard?timeframe=90d", free, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/analytics/dashboard?timeframe=7d", free, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/analytics/dashboard?timeframe=90d", premium, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/analytics/dashboard?timeframe=5d", premium, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkoutSessionFlow(t *testing.T) {
	m := metrics.NewTestManager()
	ts := newTestServer(t, Deps{Metrics: m})
	_, token := ts.signIn(t, models.RoleFree)

	rec := ts.do(t, http.MethodPost, "/api/workouts/", token, services.WorkoutInput{
		Name: "Legs", Duration: 20, Difficulty: "beginner", Category: "strength",
		Exercises: []services.WorkoutExerciseInput{{ExerciseID: "0b7d3c1e-4f7a-4c55-9a43-1d2f0a6c0002"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Workout WorkoutDTO `json:"workout"`
	}
	decodeBody(t, rec, &created)

	rec = ts.do(t, http.MethodPost, "/api/workouts/"+created.Workout.ID+"/start", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var started struct {
		Session SessionDTO `json:"session"`
	}
	decodeBody(t, rec, &started)

	path := "/api/workouts/sessions/" + started.Session.ID + "/complete"
	rec = ts.do(t, http.MethodPost, path, token, services.CompleteSessionInput{Duration: 1200})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSessionsCompleted))

	rec = ts.do(t, http.MethodPost, path, token, services.CompleteSessionInput{Duration: 1200})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Workout session already completed", firstError(t, rec))
}

func webhookParser(ev services.BillingEvent) WebhookParser {
	return func(payload []byte, signature, secret string) (services.BillingEvent, error) {
		if signature != "t=1,v1=good" || secret != "whsec_test" {
			return services.BillingEvent{}, errors.New("signature mismatch")
		}
		return ev, nil
	}
}

func TestStripeWebhook(t *testing.T) {
	m := metrics.NewTestManager()
	ent := services.NewEntitlements(1, 60)
	ts := newTestServer(t, Deps{Metrics: m, Entitlements: ent})
	user, token := ts.signIn(t, models.RoleFree)
	send := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
		req.Header.Set("Stripe-Signature", signature)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec
	}
	ts.ParseWebhook = webhookParser(services.BillingEvent{
		ID:      "evt_1",
		Type:    services.EventSubscriptionCreated,
		Created: time.Now(),
		Subscription: &services.ProviderSubscription{
			ID:       "sub_1",
			Status:   models.SubscriptionActive,
			Metadata: map[string]string{"userId": user.ID, "tier": models.RolePremium},
		},
	})

	rec := ts.do(t, http.MethodGet, "/api/subscriptions/features", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var before struct {
		Features map[string]bool `json:"features"`
	}
	decodeBody(t, rec, &before)
	assert.False(t, before.Features[services.FeatureAICoaching])

	rec = send("t=1,v1=bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid webhook signature", firstError(t, rec))

	rec = send("t=1,v1=good")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	rec = send("t=1,v1=good")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterBillingEvents.WithLabelValues(string(services.OutcomeApplied))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterBillingEvents.WithLabelValues(string(services.OutcomeDuplicate))))

	rec = ts.do(t, http.MethodGet, "/api/subscriptions/features", token, nil)
	var after struct {
		Features map[string]bool `json:"features"`
	}
	decodeBody(t, rec, &after)
	assert.True(t, after.Features[services.FeatureAICoaching])
	assert.False(t, after.Features[services.FeatureNutritionAI])
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", services.ErrNotFound("Workout not found"), http.StatusNotFound, "Workout not found"},
		{"forbidden", services.ErrForbidden("Access denied"), http.StatusForbidden, "Access denied"},
		{"conflict", services.ErrConflict("Already there"), http.StatusBadRequest, "Already there"},
		{"upstream hides cause", services.ErrUpstream("AI service unavailable", errors.New("dial tcp 10.0.0.1:80")), http.StatusServiceUnavailable, "AI service unavailable"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, firstError(t, rec))
		})
	}
}

func multipartVideo(t *testing.T, field string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("exerciseId", "0b7d3c1e-4f7a-4c55-9a43-1d2f0a6c0002"))
	require.NoError(t, mw.WriteField("setNumber", "1"))
	if size > 0 {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="squat.mp4"`)
		h.Set("Content-Type", "video/mp4")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(bytes.Repeat([]byte{0x1}, size))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeForm_UploadChecks(t *testing.T) {
	ts := newTestServer(t, Deps{AI: fakeAI{}})
	_, premium := ts.signIn(t, models.RolePremium)

	send := func(body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/ai/analyze-form", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Bearer "+premium)
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, req)
		return rec
	}

	body, ct := multipartVideo(t, "video", 10<<20)
	rec := send(body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	body, ct = multipartVideo(t, "clip", 16)
	rec = send(body, ct)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Video file is required", firstError(t, rec))
}
