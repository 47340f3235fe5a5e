package services

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"auction-house/internal/domain"

	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestSubmitBid_Validation(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Hour)

	tests := []struct {
		name      string
		auctionID string
		bidderID  string
		amount    float64
		wantKind  domain.Kind
	}{
		{"missing_auction_id", "", "bidder-1", 150, domain.KindValidation},
		{"missing_bidder_id", auction.ID, "", 150, domain.KindValidation},
		{"nan_amount", auction.ID, "bidder-1", math.NaN(), domain.KindInvalidAmount},
		{"positive_infinity", auction.ID, "bidder-1", math.Inf(1), domain.KindInvalidAmount},
		{"negative_infinity", auction.ID, "bidder-1", math.Inf(-1), domain.KindInvalidAmount},
		{"zero_amount", auction.ID, "bidder-1", 0, domain.KindInvalidAmount},
		{"negative_amount", auction.ID, "bidder-1", -10, domain.KindInvalidAmount},
		{"unknown_auction", "auction-missing", "bidder-1", 150, domain.KindNotFound},
		{"equal_to_starting_bid", auction.ID, "bidder-1", 100, domain.KindBidTooLow},
		{"below_starting_bid", auction.ID, "bidder-1", 50, domain.KindBidTooLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.admission.SubmitBid(ctx, tt.auctionID, tt.bidderID, tt.amount)
			require.Error(t, err)
			require.Equal(t, tt.wantKind, domain.KindOf(err))
		})
	}

	// Nothing above should have touched the record.
	stored, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	require.Empty(t, stored.Bids)
	require.Zero(t, stored.HighestBid)
}

func TestSubmitBid_FirstBidMustExceedStartingBid(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Hour)

	_, err := eng.admission.SubmitBid(ctx, auction.ID, "bidder-1", 100)
	require.True(t, domain.IsKind(err, domain.KindBidTooLow))

	result, err := eng.admission.SubmitBid(ctx, auction.ID, "bidder-1", 150)
	require.NoError(t, err)
	require.Equal(t, 150.0, result.HighestBid)
	require.Equal(t, "bidder-1", result.HighestBidder)

	stored, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, stored.Bids, 1)
	require.Equal(t, 150.0, stored.HighestBid)
	require.Equal(t, "bidder-1", stored.HighestBidder)
}

func TestSubmitBid_Monotonicity(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Hour)

	amounts := []float64{150, 151, 200, 350.5, 1000}
	for i, amount := range amounts {
		res, err := eng.admission.SubmitBid(ctx, auction.ID, "bidder-1", amount)
		require.NoError(t, err, "bid %d", i)
		require.Equal(t, amount, res.HighestBid)

		// Equal or lower against the new floor always loses.
		_, err = eng.admission.SubmitBid(ctx, auction.ID, "bidder-2", amount)
		require.True(t, domain.IsKind(err, domain.KindBidTooLow))
	}

	stored, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, stored.Bids, len(amounts))
	for i := 1; i < len(stored.Bids); i++ {
		require.Greater(t, stored.Bids[i].Amount, stored.Bids[i-1].Amount)
	}
}

func TestSubmitBid_ClosedAuction(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Hour)

	eng.clock.Advance(time.Hour) // exactly at closing time counts as closed

	_, err := eng.admission.SubmitBid(ctx, auction.ID, "bidder-1", 10_000)
	require.True(t, domain.IsKind(err, domain.KindClosed))

	// Lazy closure persisted the flag before rejecting.
	stored, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	require.True(t, stored.Closed)
	require.Empty(t, stored.Bids)

	// And every later attempt keeps failing the same way.
	_, err = eng.admission.SubmitBid(ctx, auction.ID, "bidder-2", 1_000_000)
	require.True(t, domain.IsKind(err, domain.KindClosed))
}

func TestSubmitBid_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Hour)

	_, err := eng.admission.SubmitBid(ctx, auction.ID, "bidder-1", 150)
	require.NoError(t, err)
	_, err = eng.admission.SubmitBid(ctx, auction.ID, "bidder-2", 120)
	require.True(t, domain.IsKind(err, domain.KindBidTooLow))

	accepted := eng.events.byType(domain.BidAccepted)
	require.Len(t, accepted, 1)
	require.Equal(t, auction.ID, accepted[0].AuctionID)
	require.Equal(t, 150.0, accepted[0].Amount)

	rejected := eng.events.byType(domain.BidRejected)
	require.Len(t, rejected, 1)
	require.Equal(t, "bidder-2", rejected[0].UserID)
}

// Many concurrent submissions with distinct amounts: every attempt resolves,
// the accepted sequence is strictly increasing, the largest offer always wins,
// and the losers see the advancing floor rather than a stale one.
func TestSubmitBid_ConcurrentRace(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Hour)

	const bidders = 64
	type outcome struct {
		amount float64
		err    error
	}

	var wg sync.WaitGroup
	results := make([]outcome, bidders)
	start := make(chan struct{})

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := 101 + float64(i) // all distinct, all above the floor
			<-start
			_, err := eng.admission.SubmitBid(ctx, auction.ID, "bidder", amount)
			results[i] = outcome{amount: amount, err: err}
		}(i)
	}
	close(start)
	wg.Wait()

	maxAmount := 101 + float64(bidders-1)
	var accepted int
	for _, r := range results {
		if r.err == nil {
			accepted++
			continue
		}
		// No attempt may be lost or fail for any other reason.
		require.True(t, domain.IsKind(r.err, domain.KindBidTooLow), "unexpected error: %v", r.err)
	}
	require.GreaterOrEqual(t, accepted, 1)

	stored, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, maxAmount, stored.HighestBid, "the largest offer must win")
	require.Len(t, stored.Bids, accepted)
	for i := 1; i < len(stored.Bids); i++ {
		require.Greater(t, stored.Bids[i].Amount, stored.Bids[i-1].Amount,
			"admission order must be strictly increasing")
	}
}

func TestCloseExpired_Idempotent(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Minute)

	_, err := eng.admission.SubmitBid(ctx, auction.ID, "bidder-1", 150)
	require.NoError(t, err)

	eng.clock.Advance(2 * time.Minute)

	fetched, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	closed, err := eng.admission.CloseExpired(ctx, fetched)
	require.NoError(t, err)
	require.True(t, closed)

	// A second pass is a no-op and never an error.
	fetched, err = eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	closed, err = eng.admission.CloseExpired(ctx, fetched)
	require.NoError(t, err)
	require.False(t, closed)

	// Closure never disturbs the bid state.
	require.Equal(t, 150.0, fetched.HighestBid)
	require.Equal(t, "bidder-1", fetched.HighestBidder)
	require.Len(t, fetched.Bids, 1)
}

func TestCloseExpired_OpenAuctionUntouched(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Hour)

	fetched, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	closed, err := eng.admission.CloseExpired(ctx, fetched)
	require.NoError(t, err)
	require.False(t, closed)
	require.False(t, fetched.Closed)
}

func TestCloseExpired_StaleSnapshotAfterExtension(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Minute)

	// Snapshot taken while the auction still closes at +1m.
	stale, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)

	// The owner extends the closing time before the snapshot is acted on.
	_, err = eng.auctions.UpdateAuction(ctx, auction.ID, "owner-1", domain.AuctionUpdate{
		ClosingTime: tptr(testStart.Add(time.Hour)),
	})
	require.NoError(t, err)

	eng.clock.Advance(2 * time.Minute)

	// The transition must be decided on current state, not the snapshot's
	// old closing time.
	closed, err := eng.admission.CloseExpired(ctx, stale)
	require.NoError(t, err)
	require.False(t, closed, "an extended auction must not close off a stale snapshot")
	require.False(t, stale.Closed)
	require.Equal(t, testStart.Add(time.Hour), stale.ClosingTime, "caller's record reflects current state")

	stored, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	require.False(t, stored.Closed)
	require.Empty(t, eng.events.byType(domain.AuctionClosed))

	// It is still live for bidders.
	_, err = eng.admission.SubmitBid(ctx, auction.ID, "bidder-1", 150)
	require.NoError(t, err)
}

func TestCloseExpired_DeletedRecordIsNoOp(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(testStart)
	auction := eng.mustCreate(ctx, "owner-1", 100, time.Minute)

	stale, err := eng.store.Get(ctx, auction.ID)
	require.NoError(t, err)
	require.NoError(t, eng.auctions.DeleteAuction(ctx, auction.ID, "owner-1"))

	eng.clock.Advance(2 * time.Minute)

	closed, err := eng.admission.CloseExpired(ctx, stale)
	require.NoError(t, err)
	require.False(t, closed)
	require.Empty(t, eng.events.byType(domain.AuctionClosed))
}
