package handler

import (
	"log/slog"
	"net/http"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/ahmadqo/bengkel-pinjam/docs" // Import generated docs
	appMiddleware "github.com/ahmadqo/bengkel-pinjam/internal/middleware"
	"github.com/ahmadqo/bengkel-pinjam/internal/model"
	"github.com/ahmadqo/bengkel-pinjam/internal/response"
)

var (
	adminOnly     = []string{string(model.RoleAdmin)}
	borrowerRoles = []string{string(model.RoleStudent), string(model.RoleTeacher), string(model.RoleGeneral)}
)

type Router struct {
	authHandler      *AuthHandler
	itemHandler      *ItemHandler
	loanHandler      *LoanHandler
	accountHandler   *AccountHandler
	dashboardHandler *DashboardHandler
	realtimeHandler  *RealtimeHandler
	jwtSecret        string
	log              *slog.Logger
}

func NewRouter(
	authHandler *AuthHandler,
	itemHandler *ItemHandler,
	loanHandler *LoanHandler,
	accountHandler *AccountHandler,
	dashboardHandler *DashboardHandler,
	realtimeHandler *RealtimeHandler,
	jwtSecret string,
	log *slog.Logger,
) *Router {
	return &Router{
		authHandler:      authHandler,
		itemHandler:      itemHandler,
		loanHandler:      loanHandler,
		accountHandler:   accountHandler,
		dashboardHandler: dashboardHandler,
		realtimeHandler:  realtimeHandler,
		jwtSecret:        jwtSecret,
		log:              log,
	}
}

func (ro *Router) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(ro.log, next)
}

func (ro *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.With(ro.httpLogger).Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, "Server berjalan dengan baik", map[string]string{"status": "ok"})
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {

		// ── Websocket (tanpa access log: writer logger tidak mendukung hijack) ──
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Authenticate(ro.jwtSecret))
			r.Use(appMiddleware.RequireRole(adminOnly...))
			r.Get("/ws/admin", ro.realtimeHandler.Admin)
		})

		r.Group(func(r chi.Router) {
			r.Use(ro.httpLogger)

			// ── Auth (public) ────────────────────────────────
			r.Route("/auth", func(r chi.Router) {
				r.Post("/register/siswa", ro.authHandler.RegisterStudent)
				r.Post("/register/guru", ro.authHandler.RegisterTeacher)
				r.Post("/register/umum", ro.authHandler.RegisterGeneral)
				r.Post("/login", ro.authHandler.Login)
				r.Post("/refresh", ro.authHandler.RefreshToken)
				r.Post("/status", ro.authHandler.AccountStatus)

				r.Group(func(r chi.Router) {
					r.Use(appMiddleware.Authenticate(ro.jwtSecret))
					r.Get("/me", ro.authHandler.Me)
				})
			})

			// ── Public: verifikasi QR slip ─────────────────────
			r.Get("/verify-loan/{token}", ro.loanHandler.Verify)

			// ── Protected routes ──────────────────────────────
			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.Authenticate(ro.jwtSecret))

				// Items
				r.Route("/items", func(r chi.Router) {
					r.With(appMiddleware.RequireRole(borrowerRoles...)).Get("/catalog", ro.itemHandler.Catalog)
					r.Get("/", ro.itemHandler.GetAll)
					r.Get("/{id}", ro.itemHandler.GetByID)

					r.Group(func(r chi.Router) {
						r.Use(appMiddleware.RequireRole(adminOnly...))
						r.Post("/", ro.itemHandler.Create)
						r.Put("/{id}", ro.itemHandler.Update)
						r.Delete("/{id}", ro.itemHandler.Delete)
						r.Post("/{id}/image", ro.itemHandler.UploadImage)
						r.Patch("/{id}/stock", ro.itemHandler.AdjustStock)
					})
				})

				// Loans
				r.Route("/loans", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(appMiddleware.RequireRole(borrowerRoles...))
						r.Post("/", ro.loanHandler.Submit)
						r.Post("/batch", ro.loanHandler.SubmitBatch)
						r.Get("/me", ro.loanHandler.Mine)
					})

					r.Get("/{id}", ro.loanHandler.GetByID)
					r.Get("/{id}/slip", ro.loanHandler.Slip)

					r.Group(func(r chi.Router) {
						r.Use(appMiddleware.RequireRole(adminOnly...))
						r.Get("/", ro.loanHandler.GetAll)
						r.Post("/{id}/decision", ro.loanHandler.Decide)
						r.Post("/{id}/return", ro.loanHandler.ConfirmReturn)
					})
				})

				// Account verification (admin only)
				r.Route("/accounts", func(r chi.Router) {
					r.Use(appMiddleware.RequireRole(adminOnly...))
					r.Get("/", ro.accountHandler.GetAll)
					r.Post("/{id}/decision", ro.accountHandler.Decide)
				})

				// Dashboard
				r.Route("/dashboard", func(r chi.Router) {
					r.With(appMiddleware.RequireRole(adminOnly...)).Get("/admin", ro.dashboardHandler.Admin)
					r.With(appMiddleware.RequireRole(borrowerRoles...)).Get("/me", ro.dashboardHandler.Mine)
				})
			})
		})
	})

	return r
}
