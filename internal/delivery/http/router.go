package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"townhall/internal/delivery/http/controllers"
	"townhall/internal/delivery/http/middleware"
	"townhall/internal/domain"
)

// LoginRateLimit bounds POST /login per client IP.
type LoginRateLimit struct {
	Counter middleware.Counter
	Limit   int
	Window  time.Duration
}

// RouterDeps carries what NewRouter mounts.
type RouterDeps struct {
	Logger         *slog.Logger
	Sessions       *middleware.SessionManager
	Authenticator  middleware.Authenticator
	AllowedOrigins []string
	LoginLimit     LoginRateLimit

	Auth    *controllers.AuthController
	Rsvp    *controllers.RsvpController
	Webhook *controllers.WebhookController
	Email   *controllers.EmailController
	Event   *controllers.EventController
	User    *controllers.UserController
	Admin   *controllers.AdminController
	Health  *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(d.AllowedOrigins))

	r.Get("/healthz", d.Health.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// Payment callbacks and email links carry their own credentials.
	r.Post("/webhooks/stripe", d.Webhook.Stripe)
	r.Route("/emails/{id}", func(r chi.Router) {
		r.Get("/footer.gif", d.Email.Pixel)
		r.Get("/unsubscribe", d.Email.UnsubscribeInfo)
		r.Post("/unsubscribe", d.Email.Unsubscribe)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(d.Sessions, d.Authenticator, d.Logger))

		r.With(middleware.RateLimit(d.LoginLimit.Counter, "login", d.LoginLimit.Limit, d.LoginLimit.Window, d.Logger)).
			Post("/login", d.Auth.RequestLogin)
		r.Get("/login", d.Auth.Login)
		r.Get("/register", d.Auth.RegistrationInfo)
		r.Post("/register", d.Auth.Register)
		r.Post("/logout", d.Auth.Logout)

		r.Route("/e/{slug}", func(r chi.Router) {
			r.Get("/", d.Event.GetEvent)
			r.Get("/guestlist", d.Rsvp.GuestList)
			r.Post("/guestlist", d.Rsvp.StartFromGuestList)
			r.Route("/rsvp", func(r chi.Router) {
				r.Post("/", d.Rsvp.Start)
				r.Get("/selection", d.Rsvp.Selection)
				r.Post("/selection", d.Rsvp.SubmitSelection)
				r.Get("/attendees", d.Rsvp.Attendees)
				r.Post("/attendees", d.Rsvp.SubmitAttendees)
				r.Get("/contribution", d.Rsvp.Contribution)
				r.Post("/contribution", d.Rsvp.ConfirmFree)
				r.Get("/manage", d.Rsvp.Manage)
				r.Get("/status", d.Rsvp.Status)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/me", d.User.GetMe)
			r.Patch("/me", d.User.UpdateMe)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(middleware.RequireRole(domain.RoleWriter, domain.RoleAdmin)).
				Post("/posts/{id}/broadcast", d.Admin.BroadcastPost)
			r.With(middleware.RequireRole(domain.RoleAdmin)).
				Get("/email-batches", d.Admin.ListBatches)
		})
	})

	return r
}
