package mysql

// Schema:
//
//	CREATE TABLE auctions (
//	    id             VARCHAR(64) PRIMARY KEY,
//	    item_name      VARCHAR(255) NOT NULL,
//	    description    TEXT NOT NULL,
//	    starting_bid   DOUBLE NOT NULL,
//	    closing_time   DATETIME(6) NOT NULL,
//	    created_by     VARCHAR(64) NOT NULL,
//	    highest_bid    DOUBLE NOT NULL DEFAULT 0,
//	    highest_bidder VARCHAR(64) NOT NULL DEFAULT '',
//	    is_closed      TINYINT(1) NOT NULL DEFAULT 0,
//	    created_at     DATETIME(6) NOT NULL,
//	    updated_at     DATETIME(6) NOT NULL
//	);
//
//	CREATE TABLE bids (
//	    id         VARCHAR(64) PRIMARY KEY,
//	    auction_id VARCHAR(64) NOT NULL,
//	    seq        BIGINT NOT NULL AUTO_INCREMENT UNIQUE,
//	    bidder_id  VARCHAR(64) NOT NULL,
//	    amount     DOUBLE NOT NULL,
//	    bid_time   DATETIME(6) NOT NULL,
//	    KEY idx_bids_auction (auction_id, seq)
//	);

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"auction-house/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

// AuctionStore is the durable domain.AuctionStore. Bids live in their own
// append-only table so an admission inserts one row instead of rewriting the
// embedded history.
type AuctionStore struct {
	db *sql.DB
}

func NewAuctionStore(db *sql.DB) *AuctionStore {
	return &AuctionStore{db: db}
}

func (s *AuctionStore) Create(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions
            (id, item_name, description, starting_bid, closing_time, created_by,
             highest_bid, highest_bidder, is_closed, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		auction.ID, auction.ItemName, auction.Description, auction.StartingBid,
		auction.ClosingTime, auction.CreatedBy, auction.HighestBid,
		auction.HighestBidder, auction.Closed, auction.CreatedAt, auction.UpdatedAt)
	if err != nil {
		return domain.StorageErr(err, "failed to create auction")
	}
	return nil
}

func (s *AuctionStore) Get(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `
        SELECT id, item_name, description, starting_bid, closing_time, created_by,
               highest_bid, highest_bidder, is_closed, created_at, updated_at
        FROM auctions WHERE id = ?
    `
	auction, err := scanAuction(s.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundf("auction %s not found", auctionID)
		}
		return nil, domain.StorageErr(err, "failed to load auction")
	}

	if err := s.loadBids(ctx, auction); err != nil {
		return nil, err
	}
	return auction, nil
}

func (s *AuctionStore) List(ctx context.Context) ([]*domain.Auction, error) {
	return s.queryAuctions(ctx, `
        SELECT id, item_name, description, starting_bid, closing_time, created_by,
               highest_bid, highest_bidder, is_closed, created_at, updated_at
        FROM auctions ORDER BY created_at ASC, id ASC
    `)
}

func (s *AuctionStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Auction, error) {
	return s.queryAuctions(ctx, `
        SELECT id, item_name, description, starting_bid, closing_time, created_by,
               highest_bid, highest_bidder, is_closed, created_at, updated_at
        FROM auctions WHERE created_by = ? ORDER BY created_at ASC, id ASC
    `, ownerID)
}

func (s *AuctionStore) ListExpiredOpen(ctx context.Context, before time.Time) ([]*domain.Auction, error) {
	return s.queryAuctions(ctx, `
        SELECT id, item_name, description, starting_bid, closing_time, created_by,
               highest_bid, highest_bidder, is_closed, created_at, updated_at
        FROM auctions WHERE is_closed = 0 AND closing_time <= ?
        ORDER BY created_at ASC, id ASC
    `, before)
}

// AppendBid inserts the bid row and advances the auction's highest state in one
// transaction so no reader observes a partial admission.
func (s *AuctionStore) AppendBid(ctx context.Context, auctionID string, bid domain.Bid) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageErr(err, "failed to begin admission transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        INSERT INTO bids (id, auction_id, bidder_id, amount, bid_time)
        VALUES (?, ?, ?, ?, ?)
    `, bid.ID, auctionID, bid.Bidder, bid.Amount, bid.Timestamp)
	if err != nil {
		return domain.StorageErr(err, "failed to record bid")
	}

	res, err := tx.ExecContext(ctx, `
        UPDATE auctions SET highest_bid = ?, highest_bidder = ?, updated_at = ?
        WHERE id = ?
    `, bid.Amount, bid.Bidder, bid.Timestamp, auctionID)
	if err != nil {
		return domain.StorageErr(err, "failed to advance highest bid")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundf("auction %s not found", auctionID)
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageErr(err, "failed to commit admission")
	}
	return nil
}

func (s *AuctionStore) MarkClosed(ctx context.Context, auctionID string, closedAt time.Time) error {
	// Idempotent: the WHERE clause makes re-closing a no-op, and the
	// closing_time predicate keeps a stale caller from closing a record whose
	// closing time was extended past its snapshot.
	_, err := s.db.ExecContext(ctx, `
        UPDATE auctions SET is_closed = 1, updated_at = ?
        WHERE id = ? AND is_closed = 0 AND closing_time <= ?
    `, closedAt, auctionID, closedAt)
	if err != nil {
		return domain.StorageErr(err, "failed to close auction")
	}
	return nil
}

func (s *AuctionStore) Update(ctx context.Context, auction *domain.Auction) error {
	// is_closed only ever moves 0 -> 1 here; a caller snapshot can never
	// reopen a closed row.
	res, err := s.db.ExecContext(ctx, `
        UPDATE auctions
        SET item_name = ?, description = ?, starting_bid = ?, closing_time = ?,
            is_closed = is_closed OR ?, updated_at = ?
        WHERE id = ?
    `, auction.ItemName, auction.Description, auction.StartingBid,
		auction.ClosingTime, auction.Closed, auction.UpdatedAt, auction.ID)
	if err != nil {
		return domain.StorageErr(err, "failed to update auction")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundf("auction %s not found", auction.ID)
	}
	return nil
}

func (s *AuctionStore) Delete(ctx context.Context, auctionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageErr(err, "failed to begin delete transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bids WHERE auction_id = ?`, auctionID); err != nil {
		return domain.StorageErr(err, "failed to delete bid history")
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM auctions WHERE id = ?`, auctionID)
	if err != nil {
		return domain.StorageErr(err, "failed to delete auction")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundf("auction %s not found", auctionID)
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageErr(err, "failed to commit delete")
	}
	return nil
}

func (s *AuctionStore) queryAuctions(ctx context.Context, query string, args ...interface{}) ([]*domain.Auction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.StorageErr(err, "failed to list auctions")
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		auction, err := scanAuction(rows)
		if err != nil {
			return nil, domain.StorageErr(err, "failed to scan auction")
		}
		auctions = append(auctions, auction)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageErr(err, "failed to list auctions")
	}

	for _, auction := range auctions {
		if err := s.loadBids(ctx, auction); err != nil {
			return nil, err
		}
	}
	return auctions, nil
}

func (s *AuctionStore) loadBids(ctx context.Context, auction *domain.Auction) error {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, bidder_id, amount, bid_time
        FROM bids WHERE auction_id = ? ORDER BY seq ASC
    `, auction.ID)
	if err != nil {
		return domain.StorageErr(err, "failed to load bid history")
	}
	defer rows.Close()

	for rows.Next() {
		var bid domain.Bid
		if err := rows.Scan(&bid.ID, &bid.Bidder, &bid.Amount, &bid.Timestamp); err != nil {
			return domain.StorageErr(err, "failed to scan bid")
		}
		auction.Bids = append(auction.Bids, bid)
	}
	if err := rows.Err(); err != nil {
		return domain.StorageErr(err, "failed to load bid history")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*domain.Auction, error) {
	var auction domain.Auction
	err := row.Scan(
		&auction.ID, &auction.ItemName, &auction.Description, &auction.StartingBid,
		&auction.ClosingTime, &auction.CreatedBy, &auction.HighestBid,
		&auction.HighestBidder, &auction.Closed, &auction.CreatedAt, &auction.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &auction, nil
}
