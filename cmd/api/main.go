package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/app"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/attention"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/clock"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/config"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/payment"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/storage/postgres"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/storage/redisstore"
	transporthttp "github.com/johnagbike-dotcom/nesta-client-sub000/internal/transport/http"
	"github.com/johnagbike-dotcom/nesta-client-sub000/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	cfg, err := config.Load(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var (
		deduper payment.Deduper
		locker  app.Locker
	)
	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("connect to redis: %v", err)
		}
		defer rdb.Close()
		deduper = redisstore.NewDeduper(rdb)
		locker = redisstore.NewLocker(rdb)
	}

	verifier := newVerifier(cfg, logger)
	if verifier != nil {
		defer verifier.Close()
	}

	clk := clock.NewSystem()
	dbOpts := []postgres.Option{postgres.WithLockTimeout(cfg.LockTimeout)}

	holdSvc := app.NewHoldService(postgres.NewHoldRepository(pool, dbOpts...), clk,
		app.WithHoldTTL(cfg.HoldTTL),
		app.WithMaxHoldTTL(cfg.MaxHoldTTL),
		app.WithHoldOpTimeout(cfg.OpTimeout),
		app.WithHoldLogger(logger),
	)
	availabilitySvc := app.NewAvailabilityService(postgres.NewHoldRepository(pool, dbOpts...), clk,
		app.WithAvailabilityOpTimeout(cfg.OpTimeout),
	)

	attentionOpts := []app.AttentionServiceOption{
		app.WithAttentionOpTimeout(cfg.OpTimeout),
		app.WithAttentionLogger(logger),
	}
	if len(cfg.AttentionStatuses) > 0 {
		attentionOpts = append(attentionOpts, app.WithAttentionStatuses(cfg.AttentionStatuses))
	}
	attentionSvc := app.NewAttentionService(postgres.NewAttentionRepository(pool, dbOpts...), attention.NewSet(), attentionOpts...)

	bookingSvc := app.NewBookingService(postgres.NewBookingRepository(pool, dbOpts...), holdSvc, clk,
		app.WithBookingOpTimeout(cfg.OpTimeout),
		app.WithBookingLogger(logger),
		app.WithChangeNotifier(attentionSvc),
	)
	contactSvc := app.NewContactService(postgres.NewDirectoryRepository(pool, dbOpts...), bookingSvc, clk,
		app.WithContactOpTimeout(cfg.OpTimeout),
	)
	adminSvc := app.NewAdminService(postgres.NewAdminRepository(pool, dbOpts...))

	reconcilerOpts := []payment.ReconcilerOption{
		payment.WithReconcilerLogger(logger),
		payment.WithDedupeTTL(cfg.DedupeTTL),
	}
	if deduper != nil {
		reconcilerOpts = append(reconcilerOpts, payment.WithDeduper(deduper))
	}
	if cfg.GatewayBaseURL != "" {
		var source auth.TokenSource = auth.StaticToken(cfg.GatewayToken)
		if cfg.GatewayTokenFile != "" {
			source = auth.FileToken(cfg.GatewayTokenFile)
		}
		reconcilerOpts = append(reconcilerOpts,
			payment.WithGateway(payment.NewGatewayClient(cfg.GatewayBaseURL, source)))
	}
	reconciler := payment.NewReconciler(bookingSvc, bookingSvc, reconcilerOpts...)

	sweepOpts := []app.SweeperOption{
		app.WithSweepInterval(cfg.SweepInterval),
		app.WithSweepBatch(cfg.SweepBatch),
		app.WithSweepLogger(logger),
	}
	if locker != nil {
		sweepOpts = append(sweepOpts, app.WithSweepLocker(locker))
	}
	sweeper := app.NewSweeper(holdSvc, bookingSvc, sweepOpts...)

	mux := http.NewServeMux()
	mux.Handle("/health", transporthttp.HandleHealth(pool, logger))
	mux.Handle("/availability", transporthttp.HandleAvailability(availabilitySvc, logger))
	mux.Handle("/bookings/hold", transporthttp.HandleCreateHold(holdSvc, logger))
	mux.Handle("/bookings/", transporthttp.HandleBookings(transporthttp.BookingHandlers{
		Bookings: bookingSvc,
		Payments: reconciler,
		Contacts: contactSvc,
		Logger:   logger,
	}))
	mux.Handle("/holds/", transporthttp.HandleGetHold(holdSvc, logger))
	mux.Handle("/listings/", transporthttp.HandleListingContact(contactSvc, logger))
	mux.Handle("/hosts/me/attention", transporthttp.HandleAttention(attentionSvc, logger))
	mux.Handle("/hosts/me/attention/stream", transporthttp.HandleAttentionStream(attentionSvc, logger))
	mux.Handle("/webhooks/payments", transporthttp.HandlePaymentWebhook(reconciler, []byte(cfg.WebhookSecret), logger))
	mux.Handle("/admin/listings", transporthttp.HandleAdminListings(adminSvc, logger))
	mux.Handle("/admin/listings/", transporthttp.HandleAdminListingContact(adminSvc, logger))
	mux.Handle("/admin/profiles/", transporthttp.HandleAdminProfiles(adminSvc, logger))
	mux.Handle("/", transporthttp.NotFoundHandler())

	var tokens transporthttp.TokenVerifier
	if verifier != nil {
		tokens = verifier
	}
	handler := transporthttp.RequestLogger(
		transporthttp.CORS(cfg.CORSOrigins, transporthttp.Authenticate(tokens, mux, logger)),
		logger,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper.Start(stopCtx)
	defer sweeper.Stop()

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		// Attention streams stay open until their clients leave.
		log.Printf("server shutdown error: %v; closing remaining connections", err)
		_ = server.Close()
	}
	log.Printf("server stopped")
}

// newVerifier prefers the identity provider's JWKS and falls back to a
// shared HS256 secret. It returns nil when neither is configured.
func newVerifier(cfg config.Config, logger *log.Logger) *auth.Verifier {
	var opts []auth.VerifierOption
	if cfg.JWTIssuer != "" {
		opts = append(opts, auth.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, auth.WithAudience(cfg.JWTAudience))
	}
	if cfg.JWKSURL != "" {
		v, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger, opts...)
		if err != nil {
			log.Fatalf("load jwks: %v", err)
		}
		return v
	}
	if cfg.JWTSecret != "" {
		return auth.NewHMACVerifier([]byte(cfg.JWTSecret), opts...)
	}
	return nil
}
