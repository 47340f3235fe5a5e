package services

import (
	"context"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"
)

// AuctionService composes the store, the clock, and the admission engine into
// the operations the transport layer calls. Every read path applies the same
// lazy closure the admission path uses.
type AuctionService struct {
	store     domain.AuctionStore
	clock     domain.Clock
	admission *BidAdmissionService
	log       logger.Logger
}

func NewAuctionService(
	store domain.AuctionStore,
	clock domain.Clock,
	admission *BidAdmissionService,
	log logger.Logger,
) *AuctionService {
	return &AuctionService{
		store:     store,
		clock:     clock,
		admission: admission,
		log:       log,
	}
}

// CreateAuction validates and persists a new open auction owned by ownerID.
func (s *AuctionService) CreateAuction(ctx context.Context, ownerID, itemName, description string, startingBid float64, closingTime time.Time) (*domain.Auction, error) {
	if ownerID == "" {
		return nil, domain.Validationf("owner id is required")
	}
	if itemName == "" {
		return nil, domain.Validationf("item name is required")
	}
	if description == "" {
		return nil, domain.Validationf("description is required")
	}
	if startingBid < 1 {
		return nil, domain.Validationf("starting bid must be at least 1")
	}

	now := s.clock.Now()
	if !closingTime.After(now) {
		return nil, domain.Validationf("closing time must be in the future")
	}

	auction := &domain.Auction{
		ID:          utils.GenerateID("auction"),
		ItemName:    itemName,
		Description: description,
		StartingBid: startingBid,
		ClosingTime: closingTime,
		CreatedBy:   ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Create(ctx, auction); err != nil {
		return nil, err
	}

	s.log.Info("auction created",
		"auction_id", auction.ID, "owner_id", ownerID, "closing_time", closingTime)
	return auction, nil
}

// GetAuction returns one auction, closing it first if its time has elapsed.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	if auctionID == "" {
		return nil, domain.Validationf("auction id is required")
	}

	auction, err := s.store.Get(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	s.lazyClose(ctx, auction)
	return auction, nil
}

// ListAuctions returns every auction, sweeping lazy closure over the set first.
func (s *AuctionService) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	auctions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range auctions {
		s.lazyClose(ctx, a)
	}
	return auctions, nil
}

// ListOwnedAuctions returns the auctions created by ownerID.
func (s *AuctionService) ListOwnedAuctions(ctx context.Context, ownerID string) ([]*domain.Auction, error) {
	if ownerID == "" {
		return nil, domain.Validationf("owner id is required")
	}

	auctions, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, a := range auctions {
		s.lazyClose(ctx, a)
	}
	return auctions, nil
}

// UpdateAuction applies the owner-editable fields. It runs inside the same
// per-auction critical section as admissions so a starting-bid edit can never
// race a bid on the same record.
func (s *AuctionService) UpdateAuction(ctx context.Context, auctionID, ownerID string, upd domain.AuctionUpdate) (*domain.Auction, error) {
	if auctionID == "" {
		return nil, domain.Validationf("auction id is required")
	}
	if ownerID == "" {
		return nil, domain.Validationf("owner id is required")
	}

	var updated *domain.Auction
	err := s.admission.withAuction(auctionID, func() error {
		auction, err := s.store.Get(ctx, auctionID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if _, err := s.admission.applyClosure(ctx, auction, now); err != nil {
			return err
		}

		if auction.CreatedBy != ownerID {
			return domain.Forbiddenf("only the auction owner can update it")
		}
		if auction.Closed {
			return domain.Closedf("cannot update a closed auction")
		}

		if upd.ItemName != nil {
			if *upd.ItemName == "" {
				return domain.Validationf("item name cannot be empty")
			}
			auction.ItemName = *upd.ItemName
		}
		if upd.Description != nil {
			if *upd.Description == "" {
				return domain.Validationf("description cannot be empty")
			}
			auction.Description = *upd.Description
		}
		if upd.StartingBid != nil {
			if *upd.StartingBid < 1 {
				return domain.Validationf("starting bid must be at least 1")
			}
			auction.StartingBid = *upd.StartingBid
		}
		if upd.ClosingTime != nil {
			if !upd.ClosingTime.After(now) {
				return domain.Validationf("closing time must be in the future")
			}
			auction.ClosingTime = *upd.ClosingTime
		}

		auction.UpdatedAt = now
		if err := s.store.Update(ctx, auction); err != nil {
			return err
		}
		updated = auction
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("auction updated", "auction_id", auctionID, "owner_id", ownerID)
	return updated, nil
}

// DeleteAuction removes an open auction and its bid history. Owner only; a
// closed auction can no longer be deleted, only viewed.
func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID, ownerID string) error {
	if auctionID == "" {
		return domain.Validationf("auction id is required")
	}
	if ownerID == "" {
		return domain.Validationf("owner id is required")
	}

	err := s.admission.withAuction(auctionID, func() error {
		auction, err := s.store.Get(ctx, auctionID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if _, err := s.admission.applyClosure(ctx, auction, now); err != nil {
			return err
		}

		if auction.CreatedBy != ownerID {
			return domain.Forbiddenf("only the auction owner can delete it")
		}
		if auction.Closed {
			return domain.Closedf("cannot delete a closed auction")
		}

		return s.store.Delete(ctx, auctionID)
	})
	if err != nil {
		return err
	}

	s.admission.forgetAuction(auctionID)
	s.log.Info("auction deleted", "auction_id", auctionID, "owner_id", ownerID)
	return nil
}

// SubmitBid delegates to the admission engine.
func (s *AuctionService) SubmitBid(ctx context.Context, auctionID, bidderID string, amount float64) (*AdmissionResult, error) {
	return s.admission.SubmitBid(ctx, auctionID, bidderID, amount)
}

// lazyClose applies the shared transition on a read path. A persistence error
// is logged, not surfaced: the caller still sees the correct closed view and
// the sweeper retries the write on its next tick.
func (s *AuctionService) lazyClose(ctx context.Context, auction *domain.Auction) {
	closed, err := s.admission.CloseExpired(ctx, auction)
	if err != nil {
		s.log.Error("failed to persist lazy closure", "auction_id", auction.ID, "error", err)
		return
	}
	if closed {
		s.log.Info("auction lazily closed on read", "auction_id", auction.ID)
	}
}
