package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/chronograph/internal/queue"
	"github.com/OFFIS-RIT/chronograph/internal/storage"
	"github.com/OFFIS-RIT/chronograph/internal/util"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/logger/console"
	pgxstore "github.com/OFFIS-RIT/chronograph/pkg/store/pgx"
)

// app owns the configuration and the connections opened by a command. All
// connections are opened lazily so commands only dial what they use.
type app struct {
	cfg util.Config

	pool      *pgxpool.Pool
	amqp      *amqp091.Connection
	publisher *queue.Publisher

	closeOnce sync.Once
}

func (a *app) init(jsonLogs bool) error {
	util.LoadEnv()

	cfg, err := util.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: cfg.Debug,
		JSON:  jsonLogs,
	})
	logger.Init(consoleLogger)
	return nil
}

func (a *app) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}

	poolCfg, err := pgxpool.ParseConfig(a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = int32(a.cfg.DatabaseMaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	a.pool = pool
	return pool, nil
}

// openStore connects to the database and, when a broker is configured,
// attaches the change event publisher to the store.
func (a *app) openStore(ctx context.Context, opts ...pgxstore.StoreOption) (*pgxstore.Store, error) {
	pool, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}

	if a.cfg.RabbitMQ.Enabled() && a.publisher == nil {
		conn, err := queue.Connect(ctx, a.cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to open channel: %w", err)
		}
		publisher, err := queue.NewPublisher(ch, a.cfg.RabbitMQ.Exchange)
		if err != nil {
			conn.Close()
			return nil, err
		}
		a.amqp = conn
		a.publisher = publisher
	}
	if a.publisher != nil {
		opts = append(opts, pgxstore.WithEventSink(a.publisher))
	}

	return pgxstore.NewStore(pool, opts...), nil
}

func (a *app) snapshots(ctx context.Context) (*storage.SnapshotStore, error) {
	client, err := storage.NewS3Client(ctx, a.cfg.S3)
	if err != nil {
		return nil, err
	}
	return storage.NewSnapshotStore(client, a.cfg.S3.Bucket), nil
}

func (a *app) close() {
	a.closeOnce.Do(func() {
		if a.publisher != nil {
			if err := a.publisher.Close(); err != nil {
				logger.Warn("[Graphctl] Failed to close publisher", "err", err)
			}
		}
		if a.amqp != nil {
			a.amqp.Close()
		}
		if a.pool != nil {
			a.pool.Close()
		}
	})
}
