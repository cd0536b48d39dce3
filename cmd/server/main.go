package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	familyHandler "kinship/internal/family/handler"
	familyMetrics "kinship/internal/family/metrics"
	familyService "kinship/internal/family/service"
	familyStore "kinship/internal/family/store"
	treeHandler "kinship/internal/familytree/handler"
	treeMetrics "kinship/internal/familytree/metrics"
	treeService "kinship/internal/familytree/service"
	jwttoken "kinship/internal/jwt_token"
	memberHandler "kinship/internal/member/handler"
	memberMetrics "kinship/internal/member/metrics"
	memberService "kinship/internal/member/service"
	memberStore "kinship/internal/member/store"
	"kinship/internal/notify"
	"kinship/internal/platform/config"
	"kinship/internal/platform/httpserver"
	"kinship/internal/platform/kafka"
	"kinship/internal/platform/logger"
	platformmetrics "kinship/internal/platform/metrics"
	"kinship/internal/platform/postgres"
	"kinship/internal/platform/redis"
	smartlinkHandler "kinship/internal/smartlink/handler"
	smartlinkMetrics "kinship/internal/smartlink/metrics"
	smartlinkService "kinship/internal/smartlink/service"
	httptransport "kinship/internal/transport/http"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/platform/audit/publishers"
	"kinship/pkg/platform/audit/publishers/compliance"
	"kinship/pkg/platform/audit/publishers/ops"
	auditmemory "kinship/pkg/platform/audit/store/memory"
	auditpostgres "kinship/pkg/platform/audit/store/postgres"
	"kinship/pkg/platform/circuit"
	"kinship/pkg/platform/middleware/admin"
	"kinship/pkg/platform/middleware/auth"
)

// main wires configuration, storage, services and the HTTP router, then runs
// until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

type backend struct {
	families   familyService.Store
	members    memberService.Store
	pairTx     memberService.PairTx
	auditStore audit.Store
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	health := httptransport.NewHealth(2 * time.Second)

	var (
		be  backend
		db  *sql.DB
		err error
	)
	if cfg.Database.URL != "" {
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		be = backend{
			families:   familyStore.NewPostgres(db),
			members:    memberStore.NewPostgres(db),
			pairTx:     memberStore.NewPostgresPairTx(db, cfg.Member.TxTimeout, cfg.Member.TxMaxRetries),
			auditStore: auditpostgres.New(db),
		}
		health.Add("postgres", db.PingContext)
		log.Info("using postgres storage")
	} else {
		ms := memberStore.NewInMemory()
		be = backend{
			families:   familyStore.NewInMemory(),
			members:    ms,
			pairTx:     memberStore.NewShardedPairTx(ms, cfg.Member.TxTimeout),
			auditStore: auditmemory.NewInMemoryStore(),
		}
		log.Info("using in-memory storage")
	}

	auditRouter := publishers.NewRouter(
		compliance.New(be.auditStore, compliance.WithLogger(log), compliance.WithMetrics(compliance.NewMetrics(reg))),
		ops.New(be.auditStore, ops.WithLogger(log), ops.WithMetrics(ops.NewMetrics(reg))),
	)

	notifier, closeNotifier, err := newNotifier(ctx, cfg, log, reg, health)
	if err != nil {
		return err
	}
	defer closeNotifier()

	families, err := familyService.New(be.families,
		familyService.WithLogger(log),
		familyService.WithAuditPublisher(auditRouter),
		familyService.WithMetrics(familyMetrics.New(reg)),
	)
	if err != nil {
		return err
	}
	members, err := memberService.New(be.members, be.pairTx,
		memberService.WithLogger(log),
		memberService.WithAuditPublisher(auditRouter),
		memberService.WithNotifier(notifier),
		memberService.WithMetrics(memberMetrics.New(reg)),
		memberService.WithFamilyGuard(families),
		memberService.WithAncestryMaxDepth(cfg.Member.AncestryMaxDepth),
	)
	if err != nil {
		return err
	}
	trees, err := treeService.New(members,
		treeService.WithLogger(log),
		treeService.WithMetrics(treeMetrics.New(reg)),
		treeService.WithAuditPublisher(auditRouter),
	)
	if err != nil {
		return err
	}
	links, err := smartlinkService.New(members,
		smartlinkService.WithLogger(log),
		smartlinkService.WithMetrics(smartlinkMetrics.New(reg)),
		smartlinkService.WithAuditPublisher(auditRouter),
		smartlinkService.WithMatchOptions(cfg.SmartLink.MinScore, cfg.SmartLink.MaxCandidates),
	)
	if err != nil {
		return err
	}

	validator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience))
	if cfg.Auth.AdminAPIToken == "" {
		log.Warn("ADMIN_API_TOKEN is empty; admin routes are disabled")
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Metrics:     platformmetrics.New(reg),
		Gatherer:    reg,
		Health:      health,
		RequireAuth: auth.RequireAuth(validator, log),
		Handlers: []httptransport.Registrar{
			familyHandler.New(families, log),
			memberHandler.New(members, log, admin.RequireAdminToken(cfg.Auth.AdminAPIToken, log)),
			treeHandler.New(trees, log),
			smartlinkHandler.New(links, log),
		},
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting kinship", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newNotifier picks the FamilyChanged publisher. Broker publishers fall back
// to the log publisher while their breaker is open.
func newNotifier(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer, health *httptransport.Health) (notify.Publisher, func(), error) {
	logPublisher := notify.NewLogPublisher(log)
	noop := func() {}

	var (
		primary notify.Publisher
		closeFn = noop
	)

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, noop, err
	}
	if rc != nil {
		health.Add("redis", rc.Health)
		closeFn = func() { _ = rc.Close() }
	}

	switch cfg.Notify.Backend {
	case config.NotifyRedis:
		primary = notify.NewRedisPublisher(rc, cfg.Notify.RedisChannelPrefix)
	case config.NotifyKafka:
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, log)
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		if err := producer.EnsureTopic(ctx, cfg.Kafka.Topic, 3, 1); err != nil {
			log.Warn("kafka topic bootstrap failed", "topic", cfg.Kafka.Topic, "error", err)
		}
		health.Add("kafka", producer.Health)
		closeRedis := closeFn
		closeFn = func() {
			producer.Close(context.Background())
			closeRedis()
		}
		primary = notify.NewKafkaPublisher(producer, cfg.Kafka.Topic)
	default:
		return logPublisher, closeFn, nil
	}

	log.Info("publishing family changes", "backend", string(cfg.Notify.Backend))
	return notify.NewFallbackPublisher(primary, logPublisher,
		notify.WithBreaker(circuit.New("notify-"+string(cfg.Notify.Backend))),
		notify.WithLogger(log),
		notify.WithMetrics(notify.NewMetrics(reg)),
	), closeFn, nil
}
