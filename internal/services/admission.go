package services

import (
	"context"
	"math"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"
)

// BidAdmissionService is the single authority over bid attempts. All decisions
// for a given auction run inside that auction's critical section, so every
// validation sees the state the write will apply to.
type BidAdmissionService struct {
	store  domain.AuctionStore
	clock  domain.Clock
	events domain.EventPublisher
	locks  *keyedMutex
	log    logger.Logger
}

// AdmissionResult reports the state a successful bid produced.
type AdmissionResult struct {
	BidID         string    `json:"bid_id"`
	HighestBid    float64   `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder"`
	ClosingTime   time.Time `json:"closing_time"`
}

func NewBidAdmissionService(
	store domain.AuctionStore,
	clock domain.Clock,
	events domain.EventPublisher,
	log logger.Logger,
) *BidAdmissionService {
	return &BidAdmissionService{
		store:  store,
		clock:  clock,
		events: events,
		locks:  newKeyedMutex(),
		log:    log,
	}
}

// SubmitBid evaluates and, if valid, commits a bid. The caller either gets the
// new highest state or a classified rejection; no attempt is ever dropped.
func (s *BidAdmissionService) SubmitBid(ctx context.Context, auctionID, bidderID string, amount float64) (*AdmissionResult, error) {
	if auctionID == "" {
		return nil, domain.Validationf("auction id is required")
	}
	if bidderID == "" {
		return nil, domain.Validationf("bidder id is required")
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, domain.InvalidAmountf("bid amount must be a finite number")
	}
	if amount <= 0 {
		return nil, domain.InvalidAmountf("bid amount must be positive")
	}

	result, event, err := s.admit(ctx, auctionID, bidderID, amount)
	if event != nil {
		s.publish(ctx, event)
	}
	return result, err
}

// admit holds the per-auction lock across read -> validate -> write so a
// concurrent submission can never win against stale state.
func (s *BidAdmissionService) admit(ctx context.Context, auctionID, bidderID string, amount float64) (*AdmissionResult, *domain.BidEvent, error) {
	lock := s.locks.get(auctionID)
	lock.Lock()
	defer lock.Unlock()

	auction, err := s.store.Get(ctx, auctionID)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock.Now()
	closed, err := s.applyClosure(ctx, auction, now)
	if err != nil {
		return nil, nil, err
	}
	if closed {
		s.log.Info("auction lazily closed during admission", "auction_id", auctionID)
	}

	rejected := func(reason domain.BidEventType) *domain.BidEvent {
		return &domain.BidEvent{
			Type:      reason,
			AuctionID: auctionID,
			UserID:    bidderID,
			Amount:    amount,
			Timestamp: now,
		}
	}

	if auction.Closed {
		return nil, rejected(domain.BidRejected), domain.Closedf("auction %s is closed, no more bids allowed", auctionID)
	}

	floor := auction.Floor()
	if amount <= floor {
		return nil, rejected(domain.BidRejected), domain.BidTooLowf("bid must be higher than %.2f", floor)
	}

	bid := domain.Bid{
		ID:        utils.GenerateID("bid"),
		Bidder:    bidderID,
		Amount:    amount,
		Timestamp: now,
	}
	if err := s.store.AppendBid(ctx, auctionID, bid); err != nil {
		return nil, nil, err
	}

	s.log.Info("bid admitted",
		"auction_id", auctionID, "bidder_id", bidderID, "amount", amount)

	accepted := &domain.BidEvent{
		Type:      domain.BidAccepted,
		AuctionID: auctionID,
		UserID:    bidderID,
		Amount:    amount,
		Timestamp: now,
	}
	return &AdmissionResult{
		BidID:         bid.ID,
		HighestBid:    amount,
		HighestBidder: bidderID,
		ClosingTime:   auction.ClosingTime,
	}, accepted, nil
}

// CloseExpired applies the shared lifecycle transition and persists it. Used by
// the read paths and the sweeper; admission goes through the same code under
// its lock. Idempotent. The caller's record is refreshed to the decided state.
func (s *BidAdmissionService) CloseExpired(ctx context.Context, auction *domain.Auction) (bool, error) {
	if auction.Closed {
		return false, nil
	}

	lock := s.locks.get(auction.ID)
	lock.Lock()
	defer lock.Unlock()

	// The caller's snapshot predates the lock: an owner may have moved the
	// closing time in between, so the transition must be decided on the state
	// the store holds now, the same way admission reads under its lock.
	fresh, err := s.store.Get(ctx, auction.ID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			// Deleted between the snapshot and the lock; nothing to close.
			return false, nil
		}
		return false, err
	}

	closed, err := s.applyClosure(ctx, fresh, s.clock.Now())
	if err != nil {
		return false, err
	}

	*auction = *fresh
	return closed, nil
}

// applyClosure mutates the record and persists the flag. Callers must hold the
// auction's lock.
func (s *BidAdmissionService) applyClosure(ctx context.Context, auction *domain.Auction, now time.Time) (bool, error) {
	if !auction.CloseIfExpired(now) {
		return false, nil
	}
	if err := s.store.MarkClosed(ctx, auction.ID, now); err != nil {
		return false, err
	}
	s.publish(ctx, &domain.BidEvent{
		Type:      domain.AuctionClosed,
		AuctionID: auction.ID,
		Timestamp: now,
	})
	return true, nil
}

// publish is best effort: the admission decision is already durable and a
// dropped event must not fail the caller.
func (s *BidAdmissionService) publish(ctx context.Context, event *domain.BidEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishBidEvent(ctx, event); err != nil {
		s.log.Error("failed to publish bid event",
			"type", event.Type, "auction_id", event.AuctionID, "error", err)
	}
}

// withAuction runs fn inside the auction's critical section; the facade uses it
// to keep owner updates from interleaving with admissions on the same record.
func (s *BidAdmissionService) withAuction(id string, fn func() error) error {
	lock := s.locks.get(id)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// forgetAuction releases the lock entry after a record is deleted.
func (s *BidAdmissionService) forgetAuction(id string) {
	s.locks.forget(id)
}
