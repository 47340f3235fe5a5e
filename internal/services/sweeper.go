package services

import (
	"context"
	"fmt"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/robfig/cron/v3"
)

// LifecycleSweeper proactively closes expired auctions on a fixed interval, so
// the closed view of list/read queries never depends on write traffic. It uses
// the same transition function as the lazy paths.
type LifecycleSweeper struct {
	store     domain.AuctionStore
	clock     domain.Clock
	admission *BidAdmissionService
	cron      *cron.Cron
	interval  time.Duration
	log       logger.Logger
}

func NewLifecycleSweeper(
	store domain.AuctionStore,
	clock domain.Clock,
	admission *BidAdmissionService,
	interval time.Duration,
	log logger.Logger,
) *LifecycleSweeper {
	return &LifecycleSweeper{
		store:     store,
		clock:     clock,
		admission: admission,
		cron:      cron.New(cron.WithSeconds()),
		interval:  interval,
		log:       log,
	}
}

// Start schedules the sweep for the lifetime of the process.
func (s *LifecycleSweeper) Start(ctx context.Context) error {
	s.log.Info("starting lifecycle sweeper", "interval", s.interval)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *LifecycleSweeper) Stop() error {
	s.log.Info("stopping lifecycle sweeper")
	s.cron.Stop()
	return nil
}

// Sweep closes every expired open auction. Each closure is its own atomic
// unit; a failure is logged and retried on the next tick, never fatal.
func (s *LifecycleSweeper) Sweep(ctx context.Context) {
	expired, err := s.store.ListExpiredOpen(ctx, s.clock.Now())
	if err != nil {
		s.log.Error("sweep failed to list expired auctions", "error", err)
		return
	}

	for _, auction := range expired {
		closed, err := s.admission.CloseExpired(ctx, auction)
		if err != nil {
			s.log.Error("sweep failed to close auction", "auction_id", auction.ID, "error", err)
			continue
		}
		if closed {
			s.log.Info("auction closed by sweep", "auction_id", auction.ID, "item_name", auction.ItemName)
		}
	}
}
