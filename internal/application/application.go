package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"cardshop/internal/config"
	service "cardshop/internal/domain/service/order"
	"cardshop/internal/infrastructure/notifier"
	"cardshop/internal/infrastructure/paysession"
	"cardshop/internal/infrastructure/persistence"
	"cardshop/internal/server"
	"cardshop/internal/worker"
	"cardshop/pkg/application/connectors"
	"cardshop/pkg/application/modules"
	"cardshop/pkg/logx"
	"cardshop/pkg/middlewarex"
)

func Run(ctx context.Context, log *slog.Logger) error {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	// 2. Database
	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)
	defer pg.Close(ctx)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	log.Info("database connection OK")

	// 3. Redis
	rd := &connectors.Redis{
		Address:            cfg.Redis.Address,
		Username:           cfg.Redis.Username,
		Password:           cfg.Redis.Password,
		DatabaseNumber:     cfg.Redis.DatabaseNumber,
		PoolSize:           cfg.Redis.PoolSize,
		MinIdleConnections: cfg.Redis.MinIdleConnections,
		MaxIdleConnections: cfg.Redis.MaxIdleConnections,
	}
	redisClient := rd.Client(ctx)
	defer rd.Close(ctx)

	// 4. Repositories
	variantRepo := persistence.NewVariantRepository(db)
	keyRepo := persistence.NewKeyRepository(db)
	orderRepo := persistence.NewOrderRepository(db)

	// 5. Settlement scheduler
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DatabaseNumber,
	}

	scheduler := worker.NewScheduler(redisOpt, cfg.Settlement.Delay)
	defer scheduler.Close() //nolint:errcheck

	sessions := paysession.NewStore(redisClient, cfg.Settlement.SessionTTL)

	orderService := service.NewService(variantRepo, keyRepo, orderRepo, scheduler, sessions)

	g, ctx := errgroup.WithContext(ctx)

	// 6. Notifier bot (опционален: без токена продажи просто не репортятся)
	if cfg.Bot.Enabled() {
		alertBot, err := notifier.NewTelegramBot(cfg.Bot.Token, cfg.Bot.ChatID)
		if err != nil {
			return fmt.Errorf("notifier bot: %w", err)
		}

		salesCh := make(chan service.SaleEvent, 100)
		orderService.WithSales(salesCh)

		g.Go(func() error {
			log.Info("notifier bot started listening")
			if err := alertBot.Run(ctx, salesCh); err != nil && ctx.Err() == nil {
				return fmt.Errorf("alertBot.Run: %w", err)
			}
			return nil
		})
	}

	// 7. HTTP API
	masker := logx.NewSensitiveDataMasker()

	router := chi.NewRouter()
	router.Use(
		middlewarex.TraceID,
		middlewarex.Logger,
		middlewarex.Recovery,
		middlewarex.RequestLogging(masker, cfg.HTTP.LogFieldMaxLen),
		middlewarex.ResponseLogging(masker, cfg.HTTP.LogFieldMaxLen),
	)

	server.NewServer(
		server.NewOrderServer(orderService),
	).RegisterRoutes(router)

	modules.HTTPServer{
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}.Run(ctx, g, &http.Server{ //nolint:exhaustruct
		Addr:              cfg.HTTP.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	})

	// 8. Settlement worker
	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
	}.Run(ctx, g,
		modules.AsynqQueues{worker.QueueSettlements: 1},
		worker.NewSettlementHandler(orderService).AsynqHandler(),
	)

	// 9. Probes & metrics
	modules.ProbeServer{
		Name:          cfg.App.Name,
		Version:       cfg.App.Version,
		ListenAddress: cfg.App.ProbeListenAddress,
	}.Run(ctx, g)

	modules.MetricServer{
		ListenAddress: cfg.App.MetricsListenAddress,
	}.Run(ctx, g)

	log.Info("application started")

	return g.Wait()
}
