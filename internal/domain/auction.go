package domain

import (
	"time"
)

// Auction is the unit of sale: one lot, one currency, one ordered bid history.
type Auction struct {
	ID            string    `json:"id"`
	ItemName      string    `json:"item_name"`
	Description   string    `json:"description"`
	StartingBid   float64   `json:"starting_bid"`
	ClosingTime   time.Time `json:"closing_time"`
	CreatedBy     string    `json:"created_by"`
	HighestBid    float64   `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
	Closed        bool      `json:"closed"`
	Bids          []Bid     `json:"bids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Bid is an immutable fact; the timestamp is assigned at admission, never by the caller.
type Bid struct {
	ID        string    `json:"id"`
	Bidder    string    `json:"bidder"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// AuctionUpdate carries the owner-editable fields. Nil means "leave unchanged".
type AuctionUpdate struct {
	ItemName    *string    `json:"item_name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartingBid *float64   `json:"starting_bid,omitempty"`
	ClosingTime *time.Time `json:"closing_time,omitempty"`
}

// Floor is the amount a new bid must strictly exceed: the current highest bid,
// or the starting bid while no bid has been admitted yet.
func (a *Auction) Floor() float64 {
	if a.HighestBid > 0 {
		return a.HighestBid
	}
	return a.StartingBid
}

// Expired reports whether the closing time has passed as of now.
func (a *Auction) Expired(now time.Time) bool {
	return !now.Before(a.ClosingTime)
}

// CloseIfExpired is the single Open -> Closed transition. Every close trigger
// (admission, read path, background sweep) goes through it. It reports whether
// this call performed the transition; re-closing is a no-op.
func (a *Auction) CloseIfExpired(now time.Time) bool {
	if a.Closed || !a.Expired(now) {
		return false
	}
	a.Closed = true
	a.UpdatedAt = now
	return true
}

// Status renders the lifecycle state for callers.
func (a *Auction) Status() string {
	if a.Closed {
		return "closed"
	}
	return "open"
}

// Clone returns a deep copy so callers can mutate freely without aliasing
// store-held state.
func (a *Auction) Clone() *Auction {
	cp := *a
	if a.Bids != nil {
		cp.Bids = append([]Bid(nil), a.Bids...)
	}
	return &cp
}

// BidEvent is published on the event bus after every admission decision and
// lifecycle transition.
type BidEvent struct {
	Type      BidEventType `json:"type"`
	AuctionID string       `json:"auction_id"`
	UserID    string       `json:"user_id,omitempty"`
	Amount    float64      `json:"amount,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

type BidEventType string

const (
	BidAccepted   BidEventType = "bid_accepted"
	BidRejected   BidEventType = "bid_rejected"
	AuctionClosed BidEventType = "auction_closed"
)
