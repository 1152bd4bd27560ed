// Command server runs the credential issuance and verification service:
// the HTTP API, the ledger anchor worker, and the audit event worker under
// one run group with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	credhandler "credence/internal/credential/handler"
	"credence/internal/credential/identifier"
	credservice "credence/internal/credential/service"
	credstore "credence/internal/credential/store"
	gradhandler "credence/internal/graduation/handler"
	gradservice "credence/internal/graduation/service"
	gradstore "credence/internal/graduation/store"
	institutionstore "credence/internal/institution/store"
	"credence/internal/jwttoken"
	"credence/internal/ledger"
	ledgerhandler "credence/internal/ledger/handler"
	"credence/internal/platform/config"
	"credence/internal/platform/httpserver"
	"credence/internal/platform/logger"
	"credence/internal/platform/metrics"
	"credence/internal/platform/middleware"
	"credence/internal/platform/postgres"
	"credence/internal/platform/redis"
	httptransport "credence/internal/transport/http"
	vercache "credence/internal/verification/cache"
	verhandler "credence/internal/verification/handler"
	verservice "credence/internal/verification/service"
	verstore "credence/internal/verification/store"
	"credence/pkg/platform/audit"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		if err := postgres.ApplySchema(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	// Stores: postgres when DATABASE_URL is set, memory otherwise.
	var (
		credentials  credstore.Store
		sequences    identifier.SequenceAllocator
		institutions institutionstore.Store
		attempts     verstore.AttemptStore
		requests     gradstore.Store
	)
	if db != nil {
		pg := credstore.NewPostgres(db)
		credentials, sequences = pg, pg
		institutions = institutionstore.NewPostgres(db)
		attempts = verstore.NewPostgres(db)
		requests = gradstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		mem := credstore.NewMemory()
		credentials, sequences = mem, mem
		institutions = institutionstore.NewMemory()
		attempts = verstore.NewMemory()
		requests = gradstore.NewMemory()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Audit event pipeline. Kafka is optional; events always land in the
	// local store. The interface variable stays nil when no brokers are
	// configured so the worker never calls through a nil pointer.
	kafkaPublisher, err := audit.NewKafkaPublisher(cfg.Audit.Brokers, cfg.Audit.Topic)
	if err != nil {
		log.Error("kafka connection failed", "error", err)
		os.Exit(1)
	}
	var publisher audit.Publisher
	if kafkaPublisher != nil {
		publisher = kafkaPublisher
	}
	auditWorker, recorder := audit.NewWorker(audit.NewMemoryStore(), publisher, log, 256)

	// Ledger anchoring.
	ledgerClient := ledger.NewHTTPClient(cfg.Ledger)
	anchorWorker := ledger.NewWorker(ledgerClient, credentials, log, m, cfg.Ledger.QueueSize, cfg.Ledger.SubmitTimeout)

	// Services.
	resultCache := vercache.New(redisClient, cfg.Redis.ViewTTL, log)
	verificationSvc := verservice.New(credentials, attempts, resultCache, log, m)
	credentialSvc := credservice.New(
		credentials,
		institutions,
		identifier.New(credentials, sequences),
		anchorWorker,
		verificationSvc,
		log,
		m,
		recorder,
	)
	graduationSvc := gradservice.New(requests, credentialSvc, cfg.Grading, log, recorder)

	// HTTP surface.
	healthCheckers := map[string]httptransport.HealthChecker{}
	if db != nil {
		healthCheckers["postgres"] = postgres.Health(db)
	}
	if redisClient != nil {
		healthCheckers["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Credentials:    credhandler.New(credentialSvc, log),
		Verification:   verhandler.New(verificationSvc, log),
		Graduation:     gradhandler.New(graduationSvc, log),
		Ledger:         ledgerhandler.New(ledgerClient, log),
		JWTValidator:   jwttoken.NewService(cfg.JWTSigningKey),
		PipelineKeyOK:  middleware.RequireAPIKey(cfg.PipelineAPIKeyHash, log),
		HealthCheckers: healthCheckers,
		Logger:         log,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return anchorWorker.Run(groupCtx) })
	group.Go(func() error { return auditWorker.Run(groupCtx) })
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	waitErr := group.Wait()

	// Close before deciding the exit code so the producer flushes even on a
	// failed shutdown.
	kafkaPublisher.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}

	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		log.Error("shutdown with error", "error", waitErr)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
