package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"auction-house/internal/domain"
)

// AuctionStore is the concurrency-safe in-memory reference implementation of
// domain.AuctionStore. Reads hand out deep copies so callers can never alias
// store-held state; each method is atomic under the store mutex.
type AuctionStore struct {
	mu       sync.RWMutex
	auctions map[string]*domain.Auction
}

func NewAuctionStore() *AuctionStore {
	return &AuctionStore{auctions: make(map[string]*domain.Auction)}
}

func (s *AuctionStore) Create(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.auctions[auction.ID]; exists {
		return domain.Conflictf("auction %s already exists", auction.ID)
	}
	s.auctions[auction.ID] = auction.Clone()
	return nil
}

func (s *AuctionStore) Get(ctx context.Context, auctionID string) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return nil, domain.NotFoundf("auction %s not found", auctionID)
	}
	return auction.Clone(), nil
}

func (s *AuctionStore) List(ctx context.Context) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]*domain.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		auctions = append(auctions, a.Clone())
	}
	sortByCreation(auctions)
	return auctions, nil
}

func (s *AuctionStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var auctions []*domain.Auction
	for _, a := range s.auctions {
		if a.CreatedBy == ownerID {
			auctions = append(auctions, a.Clone())
		}
	}
	sortByCreation(auctions)
	return auctions, nil
}

func (s *AuctionStore) ListExpiredOpen(ctx context.Context, before time.Time) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var auctions []*domain.Auction
	for _, a := range s.auctions {
		if !a.Closed && !a.ClosingTime.After(before) {
			auctions = append(auctions, a.Clone())
		}
	}
	sortByCreation(auctions)
	return auctions, nil
}

// AppendBid commits an admission in one step: append to the ordered history and
// advance the highest bid and bidder together.
func (s *AuctionStore) AppendBid(ctx context.Context, auctionID string, bid domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return domain.NotFoundf("auction %s not found", auctionID)
	}

	auction.Bids = append(auction.Bids, bid)
	auction.HighestBid = bid.Amount
	auction.HighestBidder = bid.Bidder
	auction.UpdatedAt = bid.Timestamp
	return nil
}

func (s *AuctionStore) MarkClosed(ctx context.Context, auctionID string, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	auction, ok := s.auctions[auctionID]
	if !ok {
		return domain.NotFoundf("auction %s not found", auctionID)
	}
	// No-op when already closed or when the stored closing time has not
	// elapsed; a caller working from a stale snapshot cannot close a record
	// whose closing time moved ahead of it.
	if auction.Closed || auction.ClosingTime.After(closedAt) {
		return nil
	}
	auction.Closed = true
	auction.UpdatedAt = closedAt
	return nil
}

// Update replaces the owner-editable fields. The bid history, highest state and
// the monotonic closed flag are taken from the stored record, not the caller's
// snapshot.
func (s *AuctionStore) Update(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.auctions[auction.ID]
	if !ok {
		return domain.NotFoundf("auction %s not found", auction.ID)
	}

	stored.ItemName = auction.ItemName
	stored.Description = auction.Description
	stored.StartingBid = auction.StartingBid
	stored.ClosingTime = auction.ClosingTime
	stored.Closed = stored.Closed || auction.Closed
	stored.UpdatedAt = auction.UpdatedAt
	return nil
}

func (s *AuctionStore) Delete(ctx context.Context, auctionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[auctionID]; !ok {
		return domain.NotFoundf("auction %s not found", auctionID)
	}
	delete(s.auctions, auctionID)
	return nil
}

func sortByCreation(auctions []*domain.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if auctions[i].CreatedAt.Equal(auctions[j].CreatedAt) {
			return auctions[i].ID < auctions[j].ID
		}
		return auctions[i].CreatedAt.Before(auctions[j].CreatedAt)
	})
}
