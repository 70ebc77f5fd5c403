package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/glowhouse/portal-backend-go/internal/handler/http/middleware"
	"github.com/glowhouse/portal-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	Env            string
	AllowedOrigins []string
}

func NewRouter(
	cfg RouterConfig,
	jwtService jwt.Service,
	authHandler AuthHandler,
	timeOffHandler TimeOffHandler,
	notificationHandler NotificationHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "portal-backend"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		// Token arrives as a query parameter, so the streams sit outside
		// the Verifier group.
		r.Get("/timeoff/stream", timeOffHandler.Stream)
		r.Get("/notifications/stream", notificationHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Route("/timeoff", func(r chi.Router) {
				r.Post("/", timeOffHandler.Submit)
				r.Get("/", timeOffHandler.MyRequests)
				r.Get("/balances", timeOffHandler.Balances)
				r.Get("/conflicts", timeOffHandler.Conflicts)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", timeOffHandler.Get)
					r.Post("/cancel", timeOffHandler.Cancel)
					r.Post("/archive", timeOffHandler.Archive)
					r.Post("/unarchive", timeOffHandler.Unarchive)

					// Approver only
					r.Group(func(r chi.Router) {
						r.Use(middleware.ApproverOnly())
						r.Post("/approve", timeOffHandler.Approve)
						r.Post("/reject", timeOffHandler.Reject)
					})
				})

				// Approver only
				r.Group(func(r chi.Router) {
					r.Use(middleware.ApproverOnly())
					r.Put("/balances", timeOffHandler.AdjustBalance)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Put("/read", notificationHandler.MarkAsRead)
				r.Put("/read-all", notificationHandler.MarkAllAsRead)
				r.Delete("/{id}", notificationHandler.Delete)
				r.Get("/sse-token", notificationHandler.GetSSEToken)
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	return r
}
