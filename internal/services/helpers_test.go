package services

import (
	"context"
	"sync"
	"time"

	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/memory"
	"auction-house/pkg/logger"
)

// fakeClock lets lifecycle tests move time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []domain.BidEvent
}

func (p *capturePublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *event)
	return nil
}

func (p *capturePublisher) byType(t domain.BidEventType) []domain.BidEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.BidEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type engine struct {
	store     *memory.AuctionStore
	clock     *fakeClock
	events    *capturePublisher
	admission *BidAdmissionService
	auctions  *AuctionService
	sweeper   *LifecycleSweeper
}

// newEngine wires the full stack on the in-memory store with a fake clock and
// a default one-minute sweep interval (tests call Sweep directly).
func newEngine(start time.Time) *engine {
	store := memory.NewAuctionStore()
	clock := newFakeClock(start)
	events := &capturePublisher{}
	log := logger.NewNop()

	admission := NewBidAdmissionService(store, clock, events, log)
	auctions := NewAuctionService(store, clock, admission, log)
	sweeper := NewLifecycleSweeper(store, clock, admission, time.Minute, log)

	return &engine{
		store:     store,
		clock:     clock,
		events:    events,
		admission: admission,
		auctions:  auctions,
		sweeper:   sweeper,
	}
}

func (e *engine) mustCreate(ctx context.Context, owner string, startingBid float64, closesIn time.Duration) *domain.Auction {
	auction, err := e.auctions.CreateAuction(ctx, owner, "vintage radio", "tube amp, working",
		startingBid, e.clock.Now().Add(closesIn))
	if err != nil {
		panic(err)
	}
	return auction
}
