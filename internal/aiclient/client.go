// Package aiclient talks to the Python AI service over HTTP.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"fitcoach-backend-go/internal/services"

	log "github.com/sirupsen/logrus"
)

const maxErrorBody = 2048

type Client struct {
	baseURL    string
	httpClient *http.Client
	observe    func(capability string, err error)
}

var _ services.AIProvider = (*Client)(nil)

// New builds a client with its own http.Client bounded by timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// OnCall registers a hook invoked after every upstream call.
func (c *Client) OnCall(fn func(capability string, err error)) {
	c.observe = fn
}

type workoutRequest struct {
	UserPreferences userPreferences           `json:"user_preferences"`
	Duration        int                       `json:"duration"`
	Difficulty      string                    `json:"difficulty"`
	Equipment       []string                  `json:"equipment"`
	UserHistory     []services.WorkoutSummary `json:"user_history"`
}

type userPreferences struct {
	FitnessLevel string          `json:"fitness_level,omitempty"`
	Goals        map[string]any  `json:"goals"`
	Extra        json.RawMessage `json:"extra,omitempty"`
}

type exerciseSet struct {
	Type     string `json:"type"`
	Reps     *int   `json:"reps"`
	Duration *int   `json:"duration"`
	RestTime *int   `json:"rest_time"`
}

type exercise struct {
	Name          string        `json:"name"`
	Category      string        `json:"category"`
	TargetMuscles []string      `json:"target_muscles"`
	Instructions  []string      `json:"instructions"`
	Tips          []string      `json:"tips"`
	Equipment     []string      `json:"equipment"`
	Sets          []exerciseSet `json:"sets"`
	RestTime      *int          `json:"rest_time"`
}

type workoutResponse struct {
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Duration          int        `json:"duration"`
	Difficulty        string     `json:"difficulty"`
	Category          string     `json:"category"`
	Exercises         []exercise `json:"exercises"`
	EstimatedCalories *int       `json:"estimated_calories"`
	TargetMuscles     []string   `json:"target_muscles"`
	Equipment         []string   `json:"equipment"`
	CoachingNotes     string     `json:"coaching_notes"`
}

func goalsMap(g interface{}) map[string]any {
	raw, err := json.Marshal(g)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return out
}

func (c *Client) GenerateWorkout(ctx context.Context, req services.WorkoutPlanRequest) (services.GeneratedWorkout, error) {
	body := workoutRequest{
		UserPreferences: userPreferences{
			FitnessLevel: req.FitnessLevel,
			Goals:        goalsMap(req.Goals),
			Extra:        req.Preferences,
		},
		Duration:    req.Duration,
		Difficulty:  req.Difficulty,
		Equipment:   req.Equipment,
		UserHistory: req.History,
	}
	if body.Equipment == nil {
		body.Equipment = []string{}
	}
	var resp workoutResponse
	if err := c.postJSON(ctx, "generate-workout", "/generate-workout", body, &resp); err != nil {
		return services.GeneratedWorkout{}, err
	}

	out := services.GeneratedWorkout{
		Name:          resp.Name,
		Description:   resp.Description,
		Category:      resp.Category,
		Difficulty:    resp.Difficulty,
		Duration:      resp.Duration,
		Calories:      resp.EstimatedCalories,
		TargetMuscles: resp.TargetMuscles,
		Equipment:     resp.Equipment,
		CoachingNotes: resp.CoachingNotes,
	}
	for _, e := range resp.Exercises {
		ge := services.GeneratedExercise{
			Name:          e.Name,
			Category:      e.Category,
			TargetMuscles: e.TargetMuscles,
			Equipment:     e.Equipment,
			Instructions:  e.Instructions,
			RestTime:      e.RestTime,
			Notes:         strings.Join(e.Tips, " "),
		}
		if n := len(e.Sets); n > 0 {
			ge.Sets = &n
			ge.Reps = e.Sets[0].Reps
			ge.Duration = e.Sets[0].Duration
			if ge.RestTime == nil {
				ge.RestTime = e.Sets[0].RestTime
			}
		}
		out.Exercises = append(out.Exercises, ge)
	}
	return out, nil
}

type formResponse struct {
	OverallScore float64         `json:"overall_score"`
	Feedback     json.RawMessage `json:"feedback"`
	Improvements []string        `json:"improvements"`
	RiskLevel    string          `json:"risk_level"`
	RepCount     *int            `json:"rep_count"`
}

func (c *Client) AnalyzeForm(ctx context.Context, req services.FormAnalysisRequest) (services.FormAnalysisResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="video"; filename=%q`, req.Filename))
	header.Set("Content-Type", req.ContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return services.FormAnalysisResult{}, err
	}
	if _, err := io.Copy(part, req.Video); err != nil {
		return services.FormAnalysisResult{}, fmt.Errorf("copy video: %w", err)
	}
	_ = mw.WriteField("exercise_name", req.ExerciseName)
	if len(req.Checkpoints) > 0 {
		_ = mw.WriteField("form_checkpoints", string(req.Checkpoints))
	}
	_ = mw.WriteField("set_number", strconv.Itoa(req.SetNumber))
	if err := mw.Close(); err != nil {
		return services.FormAnalysisResult{}, err
	}

	raw, err := c.do(ctx, "analyze-form", "/analyze-form", mw.FormDataContentType(), &buf)
	if err != nil {
		return services.FormAnalysisResult{}, err
	}
	var resp formResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return services.FormAnalysisResult{}, services.ErrUpstream("AI service returned an invalid response", err)
	}
	return services.FormAnalysisResult{
		OverallScore: int(math.Round(resp.OverallScore)),
		Feedback:     resp.Feedback,
		Improvements: resp.Improvements,
		RiskLevel:    resp.RiskLevel,
		RepCount:     resp.RepCount,
		Raw:          raw,
	}, nil
}

func (c *Client) CoachingFeedback(ctx context.Context, req services.CoachingRequest) (json.RawMessage, error) {
	body := map[string]any{
		"workout":     req.Workout,
		"performance": req.Performance,
		"user_stats":  req.Stats,
		"user_goals":  goalsMap(req.Goals),
	}
	var out json.RawMessage
	err := c.postJSON(ctx, "coaching-feedback", "/coaching-feedback", body, &out)
	return out, err
}

func (c *Client) PredictProgress(ctx context.Context, req services.ProgressRequest) (json.RawMessage, error) {
	body := map[string]any{
		"user_stats":      req.Stats,
		"user_goals":      goalsMap(req.Goals),
		"workout_history": req.History,
	}
	var out json.RawMessage
	err := c.postJSON(ctx, "predict-progress", "/predict-progress", body, &out)
	return out, err
}

func (c *Client) postJSON(ctx context.Context, capability, path string, body, dst interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	raw, err := c.do(ctx, capability, path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return services.ErrUpstream("AI service returned an invalid response", err)
	}
	return nil
}

// do maps transport failures, timeouts and non-2xx answers to an upstream error.
func (c *Client) do(ctx context.Context, capability, path, contentType string, body io.Reader) (raw []byte, err error) {
	defer func() {
		if c.observe != nil {
			c.observe(capability, err)
		}
	}()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warnf("ai: %s failed after %s: %s", capability, time.Since(start), err)
		return nil, services.ErrUpstream("AI service unavailable", fmt.Errorf("http client do: %w", err))
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.ErrUpstream("AI service unavailable", fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := raw
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		log.Warnf("ai: %s returned %d: %s", capability, resp.StatusCode, snippet)
		return nil, services.ErrUpstream("AI service unavailable", fmt.Errorf("%s: status %d", capability, resp.StatusCode))
	}
	log.Debugf("ai: %s took %s", capability, time.Since(start))
	return raw, nil
}
