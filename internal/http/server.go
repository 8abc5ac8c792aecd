package httpapi

import (
	"context"
	"net/http"
	"time"

	"fitcoach-backend-go/internal/billing"
	"fitcoach-backend-go/internal/config"
	"fitcoach-backend-go/internal/models"
	"fitcoach-backend-go/internal/services"
	"fitcoach-backend-go/internal/telemetry/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WebhookParser verifies a provider webhook and decodes it.
type WebhookParser func(payload []byte, signature, secret string) (services.BillingEvent, error)

// Deps are the collaborators a Server talks to. Nil collaborators disable
// the features that need them.
type Deps struct {
	AI           services.AIProvider
	Billing      services.BillingGateway
	Foods        services.FoodSearcher
	Bus          services.EventPublisher
	Limiter      RequestRateLimiter
	Live         *services.LiveHub
	Entitlements *services.Entitlements
	Metrics      *metrics.Manager
	Gatherer     prometheus.Gatherer
	ParseWebhook WebhookParser
	Now          func() time.Time
}

type Server struct {
	DB     *sqlx.DB
	Config config.Config
	Tokens services.TokenService
	Deps
}

func NewServer(db *sqlx.DB, cfg config.Config, deps Deps) *Server {
	tokens := services.TokenService{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  time.Duration(cfg.AccessTTLSeconds) * time.Second,
		RefreshTTL: time.Duration(cfg.RefreshTTLSeconds) * time.Second,
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewTestManager()
	}
	if deps.ParseWebhook == nil {
		deps.ParseWebhook = billing.ParseWebhook
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Server{
		DB:     db,
		Config: cfg,
		Tokens: tokens,
		Deps:   deps,
	}
}

func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer(s.Metrics))
	r.Use(RequestLogger)
	r.Use(RequestMetrics(s.Metrics))
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.Health)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/ws/live", s.LiveSocket)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", s.Register)
			auth.Post("/login", s.Login)
			auth.Post("/refresh", s.Refresh)
			auth.Post("/logout", s.Logout)
			auth.With(WithAuth(s.Tokens), s.RequireActiveUser).Get("/me", s.Me)
		})

		api.Post("/webhooks/stripe", s.StripeWebhook)

		api.Route("/users", func(users chi.Router) {
			users.Use(WithAuth(s.Tokens))
			users.Use(s.RequireActiveUser)
			users.Get("/profile", s.Me)
			users.Put("/profile", s.UpdateProfile)
			users.Get("/stats", s.UserStats)
			users.Delete("/account", s.DeleteAccount)
			users.Get("/achievements", s.UserAchievements)
			users.Get("/achievements/catalog", s.AchievementCatalog)
			users.Get("/media/{assetId}/content", s.MediaContent)
		})

		api.Route("/exercises", func(ex chi.Router) {
			ex.Get("/", s.ListExercises)
			ex.Get("/meta/categories", s.ExerciseCategories)
			ex.Get("/meta/muscles", s.MuscleGroups)
			ex.Get("/{id}", s.GetExercise)
			ex.Group(func(manage chi.Router) {
				manage.Use(WithAuth(s.Tokens))
				manage.Use(s.RequireActiveUser)
				manage.Post("/", s.CreateExercise)
				manage.Put("/{id}", s.UpdateExercise)
			})
		})

		api.Route("/workouts", func(wk chi.Router) {
			wk.Use(WithAuth(s.Tokens))
			wk.Use(s.RequireActiveUser)
			wk.Get("/", s.ListWorkouts)
			wk.Post("/", s.CreateWorkout)
			wk.Get("/sessions/history", s.SessionHistory)
			wk.Post("/sessions/{id}/complete", s.CompleteSession)
			wk.Post("/sessions/{id}/sets", s.RecordSet)
			wk.Post("/sets/{id}/complete", s.CompleteSet)
			wk.Get("/{id}", s.GetWorkout)
			wk.Post("/{id}/rate", s.RateWorkout)
			wk.Post("/{id}/start", s.StartSession)
		})

		api.Route("/nutrition", func(n chi.Router) {
			n.Use(WithAuth(s.Tokens))
			n.Use(s.RequireActiveUser)
			n.Get("/log/{date}", s.DailyLog)
			n.Post("/meals", s.AddMeal)
			n.Put("/water/{date}", s.SetWaterIntake)
			n.Get("/foods/search", s.SearchFoods)
			n.Get("/analytics", s.NutritionAnalytics)
		})

		api.Route("/ai", func(ai chi.Router) {
			ai.Use(WithAuth(s.Tokens))
			ai.Use(s.RequireActiveUser)
			ai.Use(RateLimit(s.Limiter, s.Metrics, "ai", s.Config.AIRateLimitPerMin))
			ai.With(s.RequireFeature(services.FeatureAICoaching)).Post("/generate-workout", s.GenerateWorkout)
			ai.With(s.RequireFeature(services.FeatureFormAnalysis)).Post("/analyze-form", s.AnalyzeForm)
			ai.With(s.RequireFeature(services.FeatureAICoaching)).Post("/coaching-feedback", s.CoachingFeedback)
			ai.With(s.RequireFeature(services.FeatureAICoaching)).Get("/predict-progress", s.PredictProgress)
		})

		api.Route("/subscriptions", func(sub chi.Router) {
			sub.Get("/plans", s.Plans)
			sub.Group(func(authed chi.Router) {
				authed.Use(WithAuth(s.Tokens))
				authed.Use(s.RequireActiveUser)
				authed.Get("/current", s.CurrentSubscription)
				authed.Get("/features", s.Features)
				authed.Post("/create", s.CreateSubscription)
				authed.Post("/cancel", s.CancelSubscription)
				authed.Post("/reactivate", s.ReactivateSubscription)
			})
		})

		api.Route("/trainers", func(tr chi.Router) {
			tr.Get("/", s.ListTrainers)
			tr.Get("/featured", s.FeaturedTrainers)
			tr.Group(func(authed chi.Router) {
				authed.Use(WithAuth(s.Tokens))
				authed.Use(s.RequireActiveUser)
				authed.Post("/apply", s.ApplyAsTrainer)
				authed.Get("/earnings", s.TrainerEarnings)
				authed.Put("/profile", s.UpdateTrainerProfile)
				authed.Post("/{id}/book", s.BookSession)
				authed.With(s.RequireRole(models.RoleAdmin)).Post("/{id}/review", s.ReviewTrainer)
			})
			tr.Get("/{id}", s.GetTrainer)
			tr.Get("/{id}/workouts", s.TrainerWorkouts)
		})

		api.Route("/analytics", func(an chi.Router) {
			an.Use(WithAuth(s.Tokens))
			an.With(s.RequireActiveUser).Get("/dashboard", s.Dashboard)
			an.With(s.RequireRole(models.RoleAdmin)).Get("/admin", s.AdminAnalytics)
			an.With(s.RequireRole(models.RoleTrainer, models.RoleAdmin)).Get("/trainer", s.TrainerAnalytics)
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(WithAuth(s.Tokens))
			admin.Use(s.RequireRole(models.RoleAdmin))
			admin.Get("/metrics/history", s.MetricsHistory)
			admin.Get("/users", s.ListUsers)
			admin.Post("/users/{userId}/deactivate", s.DeactivateUser)
			admin.Post("/users/{userId}/reactivate", s.ReactivateUser)
		})
	})

	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.DB.PingContext(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, map[string]interface{}{
		"status":    status,
		"timestamp": s.Now().UTC(),
		"live":      s.Live.ConnectionCount(),
	})
}
