package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidshare/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts AccountService
	Videos   PublishingService
	Tokens   middleware.TokenVerifier
	Limiter  middleware.RateLimiter
	// RetryAfter is advertised to rate limited callers.
	RetryAfter time.Duration
	Cookies    CookiePolicy
	Uploads    UploadPolicy
	Database   Pinger
	Metrics    http.Handler
}

// RegisterRoutes wires HTTP handlers into the provided router.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	health := HealthHandler{Database: deps.Database}
	accounts := AccountHandler{Accounts: deps.Accounts, Cookies: deps.Cookies, Uploads: deps.Uploads}
	videos := VideoHandler{Videos: deps.Videos, Uploads: deps.Uploads}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	limit := func(scope string) func(http.Handler) http.Handler {
		return middleware.RateLimit(deps.Limiter, scope, deps.RetryAfter)
	}
	authenticated := middleware.Authenticate(deps.Tokens)

	r.Get("/healthz", health.Handle)
	r.Method(http.MethodGet, "/metrics", metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(limit("register")).Post("/register", accounts.Register)
			r.With(limit("login")).Post("/login", accounts.Login)
			r.With(limit("refresh")).Post("/refresh-token", accounts.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/logout", accounts.Logout)
				r.Post("/change-password", accounts.ChangePassword)
				r.Get("/current-user", accounts.CurrentUser)
				r.Patch("/update-account", accounts.UpdateAccount)
				r.Patch("/avatar", accounts.UpdateAvatar)
				r.Patch("/cover-image", accounts.UpdateCoverImage)
				r.Get("/c/{username}", accounts.ChannelProfile)
				r.Get("/history", accounts.WatchHistory)
			})
		})

		r.With(authenticated).Post("/subscriptions/c/{channelId}", accounts.ToggleSubscription)

		r.Route("/videos", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/", videos.List)
			r.Post("/", videos.Publish)
			r.Patch("/toggle/publish/{videoId}", videos.TogglePublish)
			r.Get("/{videoId}", videos.Get)
			r.Patch("/{videoId}", videos.Update)
			r.Delete("/{videoId}", videos.Delete)
		})
	})
}
