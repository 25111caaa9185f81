package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"townhall/config"
	_ "townhall/docs"
	"townhall/internal/adapters/auth"
	"townhall/internal/adapters/cache"
	"townhall/internal/adapters/email"
	"townhall/internal/adapters/events"
	"townhall/internal/adapters/stripe"
	"townhall/internal/adapters/turnstile"
	delivery "townhall/internal/delivery/http"
	"townhall/internal/delivery/http/controllers"
	"townhall/internal/delivery/http/middleware"
	"townhall/internal/domain"
	"townhall/internal/mailqueue"
	"townhall/internal/rendezvous"
	"townhall/internal/repository/postgres"
	"townhall/internal/services"
)

const (
	letsEncryptStaging = "https://acme-staging-v02.api.letsencrypt.org/directory"
	janitorInterval    = time.Minute
	shutdownTimeout    = 30 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, the email worker and the background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting townhall", "environment", cfg.App.Environment, "url", cfg.App.URL)

	db, err := postgres.Open(ctx, cfg.DB.URL, cfg.DB.MaxOpenConns)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err := postgres.MigrateUp(cfg.DB.URL); err != nil {
		return err
	}
	logger.Info("database migrations completed")

	var redisCache *cache.Redis
	if cfg.Redis.URL != "" {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		logger.Info("connected to redis")
	}

	var publisher domain.EventPublisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		nats, err := events.NewNATSPublisher(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		publisher = nats
		logger.Info("connected to nats")
	}
	defer publisher.Close()

	var wg sync.WaitGroup
	defer wg.Wait()

	jobs, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	local := rendezvous.NewLocal()
	var rdv domain.Rendezvous = local
	if redisCache != nil {
		fanout := rendezvous.NewRedis(local, redisCache.Client(), logger)
		rdv = fanout
		wg.Go(func() {
			if err := fanout.Run(jobs); err != nil {
				logger.Error("rendezvous subscriber stopped", "err", err)
			}
		})
	}

	handler, worker, janitor, err := wire(cfg, logger, db, rdv, publisher, redisCache)
	if err != nil {
		return err
	}
	wg.Go(func() { worker.Run(jobs) })
	wg.Go(func() { janitor.Run(jobs) })

	servers := newServers(cfg, handler)
	errs := make(chan error, len(servers))
	for _, srv := range servers {
		wg.Go(func() {
			logger.Info("server listening", "addr", srv.Addr, "tls", srv.TLSConfig != nil)
			var err error
			if srv.TLSConfig != nil {
				err = srv.ListenAndServeTLS("", "")
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		})
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errs:
		logger.Error("server failed", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "addr", srv.Addr, "err", err)
		}
	}
	cancelJobs()
	return runErr
}

// wire builds the repositories, services and controllers behind the router.
func wire(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	rdv domain.Rendezvous,
	publisher domain.EventPublisher,
	redisCache *cache.Redis,
) (http.Handler, *mailqueue.Worker, *services.Janitor, error) {
	txManager := postgres.NewTxManager(db)
	userRepo := postgres.NewUserRepository(db)
	loginTokenRepo := postgres.NewLoginTokenRepository(db)
	sessionTokenRepo := postgres.NewSessionTokenRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	spotRepo := postgres.NewSpotRepository(db)
	rsvpSessionRepo := postgres.NewRsvpSessionRepository(db)
	rsvpRepo := postgres.NewRsvpRepository(db)
	listRepo := postgres.NewListRepository(db)
	postRepo := postgres.NewPostRepository(db)
	emailRepo := postgres.NewEmailRepository(db)
	queueRepo := postgres.NewEmailQueueRepository(db)

	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return nil, nil, nil, err
	}
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.From,
		FromName:    cfg.Email.FromName,
		ReplyTo:     cfg.Email.ReplyTo,
		SES: email.SESConfig{
			Region:          cfg.Email.SES.Region,
			AccessKeyID:     cfg.Email.SES.AccessKeyID,
			SecretAccessKey: cfg.Email.SES.SecretAccessKey,
		},
		SMTP: email.SMTPConfig{
			Addr:     cfg.Email.SMTPAddr,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
		},
		MailerSendAPIKey: cfg.Email.MailerSendAPIKey,
		Logger:           logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	tokens := auth.NewTokenGenerator()
	queue := mailqueue.NewQueue(queueRepo)
	emailService := services.NewEmailService(services.EmailDeps{
		Queue:    queue,
		Batches:  queueRepo,
		Emails:   emailRepo,
		Renderer: renderer,
		Signer:   auth.NewUnsubscribeSigner(cfg.App.SessionSecret, 0),
		Posts:    postRepo,
		Lists:    listRepo,
		Events:   eventRepo,
		Spots:    spotRepo,
		Rsvps:    rsvpRepo,
		Logger:   logger,
		AppURL:   cfg.App.URL,
		Location: cfg.Location(),
	})
	worker := mailqueue.NewWorker(queue, queueRepo, mailer, emailService, publisher,
		mailqueue.WorkerConfig{RateLimit: cfg.Email.RateLimit}, logger)

	gateway := stripe.NewGateway(stripe.Config{
		SecretKey:        cfg.Stripe.SecretKey,
		PublishableKey:   cfg.Stripe.PublishableKey,
		WebhookKey:       cfg.Stripe.WebhookKey,
		WebhookTolerance: cfg.Stripe.WebhookTolerance,
	})
	settler := services.NewSettler(rsvpSessionRepo, rsvpRepo, emailService, rdv, publisher, logger)
	rsvpService := services.NewRsvpService(services.RsvpDeps{
		Tx:         txManager,
		Events:     eventRepo,
		Spots:      spotRepo,
		Sessions:   rsvpSessionRepo,
		Rsvps:      rsvpRepo,
		Users:      userRepo,
		Lists:      listRepo,
		Conflicts:  services.NewConflictResolver(rsvpSessionRepo, rsvpRepo),
		Gateway:    gateway,
		Tokens:     tokens,
		Rendezvous: rdv,
		Settler:    settler,
		Logger:     logger,
	}, services.RsvpConfig{AppURL: cfg.App.URL, ManageWait: cfg.App.ManageWait})
	paymentService := services.NewPaymentService(gateway, rsvpSessionRepo, settler, logger)
	authService := services.NewAuthService(txManager, userRepo, loginTokenRepo, sessionTokenRepo, tokens, emailService,
		services.AuthConfig{
			AppURL:        cfg.App.URL,
			LoginTokenTTL: cfg.App.LoginTokenTTL,
			SessionTTL:    cfg.App.SessionExpiry(),
		})
	userService := services.NewUserService(userRepo)
	eventService := services.NewEventService(eventRepo, spotRepo, rsvpRepo, cfg.App.RequestTimeout)
	janitor := services.NewJanitor(rsvpSessionRepo, cfg.App.PendingSessionTTL, janitorInterval, logger)

	sessions := middleware.NewSessionManager(cfg.App.SessionSecret, cfg.App.SessionExpiry(), cfg.App.SecureCookies())
	captcha := turnstile.NewVerifier(cfg.Cloudflare.TurnstileSecretKey, "")
	if !captcha.Enabled() {
		logger.Warn("turnstile secret not set, login requests are not challenged")
	}

	// Left as nil interfaces without Redis: the limiter passes through and
	// health skips the cache check.
	var rateCounter middleware.Counter
	health := controllers.NewHealthController(logger, db)
	if redisCache != nil {
		rateCounter = redisCache
		health.Cache = redisCache
	}

	handler := delivery.NewRouter(delivery.RouterDeps{
		Logger:         logger,
		Sessions:       sessions,
		Authenticator:  authService,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		LoginLimit: delivery.LoginRateLimit{
			Counter: rateCounter,
			Limit:   cfg.App.LoginRateLimit,
			Window:  cfg.App.LoginRateWindow,
		},
		Auth:    controllers.NewAuthController(logger, authService, sessions, captcha),
		Rsvp:    controllers.NewRsvpController(logger, rsvpService),
		Webhook: controllers.NewWebhookController(logger, paymentService),
		Email:   controllers.NewEmailController(logger, emailService),
		Event:   controllers.NewEventController(logger, eventService),
		User:    controllers.NewUserController(logger, userService),
		Admin:   controllers.NewAdminController(logger, emailService),
		Health:  health,
	})
	return handler, worker, janitor, nil
}

// newServers returns the plain HTTP server, or with ACME configured an HTTPS
// server plus an HTTP server that answers challenges and redirects the rest.
func newServers(cfg *config.Config, handler http.Handler) []*http.Server {
	newServer := func(addr string, h http.Handler) *http.Server {
		return &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			// Manage parks for app.manage_wait before it writes.
			WriteTimeout: cfg.App.ManageWait + 30*time.Second,
			IdleTimeout:  time.Minute,
		}
	}
	if !cfg.ACME.Enabled() {
		return []*http.Server{newServer(cfg.Net.HTTPAddr, handler)}
	}

	directory := letsEncryptStaging
	if cfg.ACME.Prod {
		directory = acme.LetsEncryptURL
	}
	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(cfg.ACME.Domain),
		Cache:      autocert.DirCache(cfg.ACME.Dir),
		Email:      cfg.ACME.Email,
		Client:     &acme.Client{DirectoryURL: directory},
	}
	https := newServer(cfg.Net.HTTPSAddr, handler)
	https.TLSConfig = manager.TLSConfig()
	https.TLSConfig.MinVersion = tls.VersionTLS12
	return []*http.Server{https, newServer(cfg.Net.HTTPAddr, manager.HTTPHandler(nil))}
}
