package rates

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/internal/domain"
)

// Refresher keeps the rate table in sync with a reference-rate provider on
// a fixed schedule. A failed fetch leaves the previous rate in place.
type Refresher struct {
	table     *Table
	provider  Provider
	assets    domain.AssetIndex
	scheduler gocron.Scheduler
	l         *zap.Logger
}

func NewRefresher(l *zap.Logger, table *Table, provider Provider, assets domain.AssetIndex) (*Refresher, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "init rates scheduler")
	}

	return &Refresher{
		table:     table,
		provider:  provider,
		assets:    assets,
		scheduler: scheduler,
		l:         l,
	}, nil
}

// Start refreshes once immediately, then on every interval tick until
// Close is called.
func (r *Refresher) Start(ctx context.Context, interval time.Duration) error {
	r.RefreshOnce(ctx)

	_, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { r.RefreshOnce(ctx) }),
	)
	if err != nil {
		return errors.Wrap(err, "schedule rates refresh")
	}

	r.scheduler.Start()
	return nil
}

// RefreshOnce fetches a USD rate for every registered asset.
func (r *Refresher) RefreshOnce(ctx context.Context) {
	for name, asset := range r.assets {
		if name == domain.USDReference {
			r.table.SetUSDRate(name, decimal.NewFromInt(1))
			continue
		}
		if asset.Symbol == "" {
			continue
		}

		price, err := r.provider.USDPrice(ctx, asset.Symbol)
		if err != nil {
			r.l.Warn("failed to refresh rate, keeping previous value",
				zap.String("asset", name),
				zap.String("provider", r.provider.Name()),
				zap.Error(err))
			continue
		}

		r.table.SetUSDRate(name, price)
	}
}

// Close stops the refresh schedule.
func (r *Refresher) Close() error {
	return r.scheduler.Shutdown()
}
