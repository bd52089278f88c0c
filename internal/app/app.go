package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/cartloom/storefront-api/internal/domain/basket"
	"github.com/cartloom/storefront-api/internal/domain/magiclink"
	"github.com/cartloom/storefront-api/internal/domain/payment"
	"github.com/cartloom/storefront-api/internal/gateway"
	"github.com/cartloom/storefront-api/internal/httpapi"
	"github.com/cartloom/storefront-api/internal/mailer"
	"github.com/cartloom/storefront-api/internal/storage/postgres"
	"github.com/cartloom/storefront-api/internal/token"
	"github.com/cartloom/storefront-api/pkg/health"
	"github.com/cartloom/storefront-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	tokenRepo := postgres.NewLoginTokenRepository(pool)

	// Disposable email domain screening is optional.
	var blocklist *magiclink.Blocklist
	if cfg.BlocklistPath != "" {
		blocklist, err = magiclink.LoadBlocklist(cfg.BlocklistPath)
		if err != nil {
			return errors.Wrap(err, "load blocklist")
		}
		lg.Info("Blocklist loaded", zap.String("path", cfg.BlocklistPath))
	}

	// Magic login.
	issuer := token.NewIssuer(tokenRepo, []byte(cfg.Token.Pepper), cfg.Token.TTL)
	smtpMailer := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	})
	magicSvc := magiclink.NewService(issuer, smtpMailer, blocklist, cfg.BaseURL)

	// Payment initiation stays disabled until provider credentials are set;
	// the endpoint then answers 503.
	var paymentSvc *payment.Service
	if cfg.Gateway.Configured() {
		gw := gateway.NewClient(gateway.Config{
			BaseURL:   cfg.Gateway.BaseURL,
			APIKey:    cfg.Gateway.APIKey,
			SecretKey: cfg.Gateway.SecretKey,
		})
		paymentSvc = payment.NewService(
			basket.NewValidator(productRepo),
			gw,
			transactionRepo,
			orderRepo,
			cfg.Gateway.CallbackURL,
		)
	} else {
		lg.Warn("Payment gateway credentials missing, payment endpoint disabled")
	}

	// HTTP handlers.
	h := httpapi.NewHandler(
		httpapi.Config{RevealLoginURL: cfg.Environment != "production"},
		productRepo,
		paymentSvc,
		magicSvc,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes()))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("storefront-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
