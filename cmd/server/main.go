package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"homeroom/internal/identity"
	invhandler "homeroom/internal/invitation/handler"
	"homeroom/internal/invitation/link"
	invmetrics "homeroom/internal/invitation/metrics"
	invservice "homeroom/internal/invitation/service"
	"homeroom/internal/joincode"
	jchandler "homeroom/internal/joincode/handler"
	jcmetrics "homeroom/internal/joincode/metrics"
	jcservice "homeroom/internal/joincode/service"
	"homeroom/internal/platform/config"
	"homeroom/internal/platform/database"
	"homeroom/internal/platform/health"
	kafkahealth "homeroom/internal/platform/kafka"
	"homeroom/internal/platform/kafka/consumer"
	"homeroom/internal/platform/kafka/producer"
	"homeroom/internal/platform/logger"
	"homeroom/internal/platform/redis"
	reghandler "homeroom/internal/registration/handler"
	regmetrics "homeroom/internal/registration/metrics"
	regservice "homeroom/internal/registration/service"
	"homeroom/internal/registration/tracer"
	schoolhandler "homeroom/internal/school/handler"
	schoolmetrics "homeroom/internal/school/metrics"
	schoolservice "homeroom/internal/school/service"
	"homeroom/internal/workers/sweeper"
	audit "homeroom/pkg/platform/audit"
	auditconsumer "homeroom/pkg/platform/audit/consumer"
	auditmetrics "homeroom/pkg/platform/audit/metrics"
	"homeroom/pkg/platform/audit/outbox"
	outboxmetrics "homeroom/pkg/platform/audit/outbox/metrics"
	outboxpg "homeroom/pkg/platform/audit/outbox/store/postgres"
	"homeroom/pkg/platform/audit/outbox/worker"
	auditpublisher "homeroom/pkg/platform/audit/publisher"
	auditmem "homeroom/pkg/platform/audit/store/memory"
	auditpg "homeroom/pkg/platform/audit/store/postgres"
	"homeroom/pkg/platform/middleware/metadata"
	"homeroom/pkg/platform/middleware/request"
	"homeroom/pkg/platform/middleware/requesttime"
)

// main wires stores, services, and workers, then runs the HTTP server until
// a termination signal. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing homeroom",
		"addr", cfg.Addr,
		"database_configured", cfg.DatabaseURL != "",
		"kafka_configured", len(cfg.KafkaBrokers) > 0,
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // best-effort close on shutdown
	} else {
		log.Warn("no DATABASE_URL set, using in-memory stores")
	}

	redisClient, err := redis.New(config.RedisFromEnv())
	if err != nil {
		// The store stays authoritative without the cache.
		log.Warn("redis unavailable, verification cache disabled", "error", err)
		redisClient = nil
	}

	st := buildStores(pool, log)

	// Audit pipeline. With both Postgres and Kafka the publisher writes to
	// the transactional outbox, the shipper moves entries to Kafka, and the
	// consumer lands them in audit_events. Without Kafka events go to the
	// durable store directly; without Postgres they stay in memory.
	var (
		sink    audit.Store
		shipper *worker.Shipper
		cons    *consumer.Consumer
	)
	switch {
	case pool != nil && len(cfg.KafkaBrokers) > 0:
		eventStore := auditpg.New(pool.DB())
		outboxStore := outboxpg.New(pool.DB())
		brokers := strings.Join(cfg.KafkaBrokers, ",")

		prodCfg := producer.Config{Brokers: brokers, Acks: "all", Retries: 3, DeliveryTimeout: 30 * time.Second}
		prod, err := producer.New(prodCfg, log)
		if err != nil {
			log.Error("kafka producer init failed, bypassing outbox", "error", err)
			sink = eventStore
			break
		}

		sink = outbox.NewWriter(outboxStore)
		shipper = worker.New(outboxStore, prod,
			worker.WithTopic(cfg.AuditTopic),
			worker.WithLogger(log),
			worker.WithMetrics(outboxmetrics.New()),
		)

		cons, err = consumer.New(
			consumer.Config{Brokers: brokers, GroupID: "homeroom-audit", AutoOffsetReset: "earliest"},
			auditconsumer.NewHandler(eventStore, log),
			log,
		)
		if err != nil {
			log.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		if err := cons.Subscribe([]string{cfg.AuditTopic}); err != nil {
			log.Error("kafka subscribe failed", "error", err)
			os.Exit(1)
		}
	case pool != nil:
		sink = auditpg.New(pool.DB())
	default:
		sink = auditmem.NewInMemoryStore()
	}

	publisher := auditpublisher.NewPublisher(sink,
		auditpublisher.WithAsyncBuffer(1024),
		auditpublisher.WithPublisherLogger(log),
		auditpublisher.WithMetrics(auditmetrics.New()),
	)
	defer publisher.Close()

	codeOpts := []jcservice.Option{
		jcservice.WithLogger(log),
		jcservice.WithAuditPublisher(publisher),
		jcservice.WithMetrics(jcmetrics.New()),
	}
	schoolOpts := []schoolservice.Option{
		schoolservice.WithLogger(log),
		schoolservice.WithAuditPublisher(publisher),
		schoolservice.WithMetrics(schoolmetrics.New()),
	}
	if pool != nil {
		ptx := newPostgresTx(pool.DB())
		codeOpts = append(codeOpts, jcservice.WithStoreTx(ptx))
		schoolOpts = append(schoolOpts, schoolservice.WithStoreTx(ptx))
	}
	if redisClient != nil {
		cache := joincode.NewVerificationCache(redisClient.Client, cfg.CodeCacheTTL)
		codeOpts = append(codeOpts, jcservice.WithVerificationCache(cache))
	}

	codeSvc := jcservice.NewCodeService(st.codes, st.schools, codeOpts...)
	schoolSvc := schoolservice.NewSchoolService(st.schools, st.profiles, st.invites, schoolOpts...)
	regSvc := regservice.New(codeSvc, st.schools, st.profiles, st.assignments, st.gateway,
		regservice.WithLogger(log),
		regservice.WithAuditPublisher(publisher),
		regservice.WithMetrics(regmetrics.New()),
		regservice.WithTracer(tracer.NewOTel()),
	)
	invSvc := invservice.New(st.invites, st.schools, st.profiles, st.assignments,
		invservice.WithLogger(log),
		invservice.WithAuditPublisher(publisher),
		invservice.WithMetrics(invmetrics.New()),
		invservice.WithLinkSigner(link.NewSigner([]byte(cfg.InviteLinkKey), cfg.InviteLinkBase)),
	)

	sweep, err := sweeper.New(st.codes, st.invites,
		sweeper.WithInterval(cfg.SweepInterval),
		sweeper.WithLogger(log),
	)
	if err != nil {
		log.Error("sweeper init failed", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(request.NewMetrics()))
	r.Use(requesttime.Middleware)
	r.Use(metadata.NewMiddleware(metadata.DefaultConfig()).Handler)
	r.Use(request.Timeout(30 * time.Second))
	r.Use(request.ContentTypeJSON)
	r.Use(request.BodyLimit(1 << 20))

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	healthHandler := health.New(env)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaCheck := kafkahealth.NewHealthChecker(strings.Join(cfg.KafkaBrokers, ","))
		healthHandler.RegisterCheck(kafkaCheck.Name(), func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return kafkaCheck.Check(ctx)
		})
	}
	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	reghandler.New(regSvc, log).Register(r)
	schoolhandler.New(schoolSvc, log).Register(r)
	jchandler.New(codeSvc, log).Register(r)
	invhandler.New(invSvc, log).Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if shipper != nil {
		shipper.Start()
	}
	if cons != nil {
		cons.Start()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweep.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if redisClient != nil {
		g.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if shipper != nil {
			if err := shipper.Stop(shutdownCtx); err != nil {
				log.Error("outbox shipper shutdown failed", "error", err)
			}
		}
		if cons != nil {
			if err := cons.Stop(shutdownCtx); err != nil {
				log.Error("audit consumer shutdown failed", "error", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// Identity gateway plus one interface per aggregate, each the union of the
// slices the services consume. Memory and Postgres stores both satisfy them,
// so wiring picks a backend once and the services stay agnostic.
type stores struct {
	schools     schoolPersistence
	codes       codePersistence
	profiles    profilePersistence
	assignments assignmentPersistence
	invites     invitePersistence
	gateway     identity.Gateway
}

type schoolPersistence interface {
	schoolservice.SchoolStore
	regservice.SchoolStore
}

type codePersistence interface {
	jcservice.CodeStore
	sweeper.CodeStore
}

type profilePersistence interface {
	regservice.ProfileStore
	invservice.ProfileStore
	schoolservice.MemberCounter
}

type assignmentPersistence interface {
	regservice.AssignmentStore
	invservice.AssignmentStore
}

type invitePersistence interface {
	invservice.InviteStore
	schoolservice.InviteCounter
	sweeper.InviteStore
}
