package domain

import (
	"context"
	"time"
)

// AuctionStore is the sole shared mutable resource. Implementations must make
// each call atomic on its own; cross-call serialization for a given auction is
// the engine's job.
type AuctionStore interface {
	Create(ctx context.Context, auction *Auction) error
	Get(ctx context.Context, auctionID string) (*Auction, error)
	List(ctx context.Context) ([]*Auction, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Auction, error)
	// ListExpiredOpen returns open auctions whose closing time is at or before
	// the given instant; the sweeper's work queue.
	ListExpiredOpen(ctx context.Context, before time.Time) ([]*Auction, error)
	// AppendBid commits a successful admission as one unit: append the bid and
	// advance the highest bid/bidder. No reader may observe a partial update.
	AppendBid(ctx context.Context, auctionID string, bid Bid) error
	// MarkClosed sets the closed flag. Idempotent; closing an already-closed
	// auction, or one whose closing time is still ahead of closedAt, is a
	// no-op, never an error.
	MarkClosed(ctx context.Context, auctionID string, closedAt time.Time) error
	// Update replaces the owner-editable fields. The closed flag is monotonic:
	// stores must never let an update revert closed to open.
	Update(ctx context.Context, auction *Auction) error
	Delete(ctx context.Context, auctionID string) error
}

// Clock supplies the current instant so lifecycle decisions are deterministic
// under test.
type Clock interface {
	Now() time.Time
}

// EventPublisher fans admission decisions and closures out to the event bus.
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *BidEvent) error

// TokenVerifier is the identity collaborator: it turns a bearer token into an
// already-verified user id. The engine treats the id as an inert key.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
