package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/teambot/core/logger"
)

const component = "db"

// Connect opens the pool and verifies connectivity, retrying until wait
// elapses so the bot can start alongside its database container.
func Connect(ctx context.Context, cfg Config, wait time.Duration) (*sqlx.DB, error) {
	attrs := []slog.Attr{
		slog.String("driver", "postgres"),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}

	start := time.Now()
	deadline := start.Add(wait)
	var (
		db       *sqlx.DB
		err      error
		attempts int
	)
	for {
		attempts++
		db, err = ping(ctx, cfg)
		if err == nil || time.Now().After(deadline) {
			break
		}
		logger.Debug(ctx, component, "db.wait",
			append(attrs, slog.Int("attempts", attempts), slog.String("err", err.Error()))...)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		logger.Error(ctx, component, "db.connect",
			append(attrs,
				slog.String("status", "fail"),
				slog.Int("attempts", attempts),
				slog.Duration("duration", logger.Since(start)),
				slog.String("err", err.Error()),
			)...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	logger.Info(ctx, component, "db.connect",
		append(attrs,
			slog.String("status", "ok"),
			slog.Int("pool_open", cfg.MaxConnections),
			slog.Int("attempts", attempts),
			slog.Duration("duration", logger.Since(start)),
		)...)
	return db, nil
}

func ping(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
}
