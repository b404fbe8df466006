package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bluebook-labs/satprep/internal/auth"
	"github.com/bluebook-labs/satprep/internal/images"
	"github.com/bluebook-labs/satprep/internal/proctor"
	"github.com/bluebook-labs/satprep/internal/rbac"
	"github.com/bluebook-labs/satprep/internal/report"
	"github.com/bluebook-labs/satprep/internal/results"
	"github.com/bluebook-labs/satprep/internal/storage"
	"github.com/bluebook-labs/satprep/internal/testbank"
)

type Deps struct {
	Auth        *auth.AuthService
	Delivery    *Delivery
	Tests       testbank.Store
	Results     results.Store
	Sessions    proctor.Store
	Proctor     *proctor.Service
	Blobs       storage.BlobStore
	Resolver    images.Resolver
	Report      *report.Generator
	CORSOrigins []string
}

// NewRouter assembles the full API surface.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(d.Auth))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	hub := NewProgressHub()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		// Authoring (admin)
		pr.With(rbac.Require("test:author")).Post("/tests", CreateTestHandler(d.Tests))
		pr.With(rbac.Require("test:author")).Get("/tests/{testID}", GetTestAdminHandler(d.Tests))
		pr.With(rbac.Require("test:author")).Put("/tests/{testID}/questions", UpsertQuestionHandler(d.Tests))
		pr.With(rbac.Require("test:author")).Delete("/tests/{testID}/questions/{questionID}", DeleteQuestionHandler(d.Tests))
		pr.With(rbac.Require("test:author")).Post("/images", UploadImageHandler(d.Blobs))

		pr.With(rbac.RequireAny("test:take", "test:author")).Get("/tests", ListTestsHandler(d.Tests))

		// Delivery (student)
		pr.With(rbac.Require("test:take")).Post("/attempts", StartAttemptHandler(d.Delivery))
		pr.With(rbac.Require("test:take")).Get("/attempts/{attemptID}/view", ViewHandler(d.Delivery, d.Resolver))
		pr.With(rbac.Require("test:take")).Post("/attempts/{attemptID}/answer", AnswerHandler(d.Delivery))
		pr.With(rbac.Require("test:take")).Post("/attempts/{attemptID}/mark", MarkHandler(d.Delivery))
		pr.With(rbac.Require("test:take")).Post("/attempts/{attemptID}/nav", NavHandler(d.Delivery))
		pr.With(rbac.Require("test:take")).Post("/attempts/{attemptID}/exit", ExitHandler(d.Delivery))
		pr.With(rbac.Require("test:take")).Delete("/attempts/{attemptID}", AbandonHandler(d.Delivery))

		// Results
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/results", ListMyResultsHandler(d.Results))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/results/{resultID}", GetResultHandler(d.Results))
		pr.With(rbac.RequireAny("result:view-own", "result:view-all")).
			Get("/results/{resultID}/analysis", GetAnalysisHandler(d.Results))
		pr.With(rbac.RequireAny("report:download-own", "result:view-all")).
			Get("/results/{resultID}/report", DownloadReportHandler(d.Results, d.Report))

		// Proctored sessions
		pr.With(rbac.Require("session:manage")).Post("/sessions", CreateSessionHandler(d.Proctor))
		pr.With(rbac.Require("session:join")).Post("/sessions/{code}/join", JoinSessionHandler(d.Sessions))
		pr.With(rbac.Require("session:manage")).Get("/sessions/{code}", GetSessionHandler(d.Sessions))
		pr.With(rbac.Require("session:manage")).Post("/sessions/{code}/score", ScoreSessionHandler(d.Proctor, hub))
		pr.With(rbac.Require("session:manage")).Get("/sessions/{code}/progress", SessionProgressHandler(hub))
		pr.With(rbac.Require("session:publish")).Post("/sessions/{code}/publish", PublishSessionHandler(d.Proctor, d.Sessions))
	})

	return r
}
