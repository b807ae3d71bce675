package session

import (
	"context"
	"fmt"
	"io"

	"github.com/angelmondragon/fitconnect-client/internal/cart"
	"github.com/angelmondragon/fitconnect-client/internal/notifications"
	"github.com/angelmondragon/fitconnect-client/pkg/config"
	"github.com/angelmondragon/fitconnect-client/pkg/db"
	"github.com/angelmondragon/fitconnect-client/pkg/fitapi"
	"github.com/angelmondragon/fitconnect-client/pkg/logger"
	"github.com/angelmondragon/fitconnect-client/pkg/migrate"
	"github.com/angelmondragon/fitconnect-client/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Bootstrap wires a Session from configuration: the remote API client, the
// snapshot store selected by the cart store driver and a metrics registry.
func Bootstrap(ctx context.Context, cfg *config.Config, logg *logger.Logger, notifier notifications.Notifier) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	api, err := fitapi.NewClient(cfg.API.BaseURL,
		fitapi.WithToken(cfg.Auth.Token),
		fitapi.WithLogger(logg),
		fitapi.WithTimeout(cfg.API.Timeout),
		fitapi.WithBreaker(cfg.API.BreakerMaxFailures, cfg.API.BreakerOpenTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("remote api client: %w", err)
	}

	snapshots, closer, err := OpenSnapshots(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	if closer != nil {
		closers = append(closers, closer)
	}

	s, err := New(ctx, Options{
		Config:    cfg,
		Logger:    logg,
		Notifier:  notifier,
		API:       api,
		Snapshots: snapshots,
		Registry:  prometheus.NewRegistry(),
		Closers:   closers,
	})
	if err != nil {
		if closer != nil {
			err = multierr.Append(err, closer.Close())
		}
		return nil, err
	}
	return s, nil
}

// OpenSnapshots opens the snapshot repository for cfg.Store.Driver. The
// returned closer, when not nil, releases the backing connection.
func OpenSnapshots(ctx context.Context, cfg *config.Config, logg *logger.Logger) (cart.SnapshotRepository, io.Closer, error) {
	if logg == nil {
		logg = logger.Nop()
	}
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite, config.StoreDriverPostgres:
		client, err := db.New(ctx, cfg.Store.Driver, cfg.DB, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", cfg.Store.Driver, err)
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		repo, err := cart.NewGormSnapshotRepository(client.DB(), client)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return repo, client, nil

	case config.StoreDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis: %w", err)
		}
		repo, err := cart.NewRedisSnapshotRepository(client, cfg.Store.SnapshotTTL, redis.IsMissing)
		if err != nil {
			return nil, nil, multierr.Append(err, client.Close())
		}
		return repo, client, nil

	case config.StoreDriverMemory:
		return cart.NewMemorySnapshotRepository(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown cart store driver %q", cfg.Store.Driver)
	}
}
