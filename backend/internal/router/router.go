package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clear-retro/clearretro/backend/internal/setup"
	mw "github.com/clear-retro/clearretro/shared/middleware"
	"github.com/clear-retro/clearretro/shared/middleware/metrics"
	rl "github.com/clear-retro/clearretro/shared/middleware/ratelimiter"
)

// New creates and configures the router with all the routes.
// IMPORTANT! ratelimiters set with .Use limit requests for all endpoints combined in that subrouter
func New(deps *setup.Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// Backend CSP: strict policy (JSON API only, no scripts/styles needed)
	backendCSP := "default-src 'none'; frame-ancestors 'none'"
	r.Use(mw.SecurityHeadersWithCSP(deps.Config.Public.SecureCookies, backendCSP))

	h := deps.Handler
	authMw := deps.AuthMiddleware

	// Probes and metrics
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		// Public routes: joining needs no token, and join is throttled per IP
		// since each call mints an identity.
		v1.Group(func(public chi.Router) {
			public.Use(mw.RateLimit(rl.New(1, 5, 1*time.Hour), mw.GetIP))
			public.Use(mw.GlobalRateLimit(rl.Rps100()))
			public.Post("/join", h.Join)
			public.Post("/boards/{board}/join", h.Join)
		})
		// Board metadata is public so the join screen can show the name
		v1.With(mw.RateLimit(rl.Rps10(), mw.GetIP)).Get("/boards/{board}/meta", h.GetBoardMetadata)

		// Participant routes
		v1.Group(func(boards chi.Router) {
			boards.Use(authMw.NeedAuth())
			boards.Use(mw.RateLimit(rl.Rps100(), mw.GetUserIDFromContext))

			boards.Post("/boards", h.CreateBoard)
			boards.Get("/boards", h.GetMyBoards)
			boards.Get("/boards/{board}", h.GetBoard)
			boards.Patch("/boards/{board}", h.UpdateBoard)
			boards.Delete("/boards/{board}", h.DeleteBoard)
			boards.Post("/boards/{board}/complete", h.CompleteBoard)
			boards.Post("/boards/{board}/reopen", h.ReopenBoard)
			boards.Post("/boards/{board}/timer", h.SetTimer)
			boards.Get("/boards/{board}/export", h.ExportBoard)
			boards.Get("/boards/{board}/ws", h.Subscribe)

			boards.Post("/boards/{board}/cards", h.CreateCard)
			boards.Get("/boards/{board}/cards", h.GetCards)
			boards.Patch("/boards/{board}/cards/{card}/move", h.MoveCard)
			boards.Patch("/boards/{board}/cards/{card}/text", h.UpdateCardText)
			boards.Delete("/boards/{board}/cards/{card}", h.DeleteCard)
			boards.Post("/boards/{board}/cards/{card}/vote", h.ToggleVote)
			boards.Post("/boards/{board}/cards/{card}/react", h.ToggleReaction)
			boards.Post("/boards/{board}/cards/{card}/replies", h.ReplyToCard)
			boards.Post("/boards/{board}/cards/{card}/merge", h.MergeCards)
			boards.Patch("/boards/{board}/cards/{card}/action", h.SetActionItem)
		})
	})

	// Avoid 404s for preflight requests that miss the CORS handler
	r.MethodFunc(http.MethodOptions, "/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
