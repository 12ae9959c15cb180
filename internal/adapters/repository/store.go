// Package repository defines the vote ledger store interface and errors.
package repository

import (
	"context"

	"github.com/openlabel/demand/internal/domain/model"
)

// PageSort selects the ordering of the funding queue.
type PageSort string

// Supported queue sort filters.
const (
	SortMostVoted    PageSort = "most_voted"
	SortNewest       PageSort = "newest"
	SortAlmostFunded PageSort = "almost_funded"
)

// Valid reports whether s is a recognized sort filter.
func (s PageSort) Valid() bool {
	switch s {
	case SortMostVoted, SortNewest, SortAlmostFunded:
		return true
	}
	return false
}

// PageQuery describes one page of the funding queue.
type PageQuery struct {
	Sort  PageSort
	Page  int
	Limit int

	// FundingThreshold bounds the almost_funded filter: records at or
	// over the threshold are already fundable and excluded from it.
	FundingThreshold int64
}

// PageResult is one page of ledger records plus paging metadata.
type PageResult struct {
	Records    []*model.VoteRecord
	Page       int
	TotalPages int
	Total      int
}

// Store provides read/write access to the vote ledger.
//
// All returned records are defensive copies; mutations go exclusively
// through the mutate closures, which the implementation serializes
// per barcode. Implementations using optimistic concurrency return
// ErrConflict from Upsert/Update, which callers retry with a bound.
type Store interface {
	// Upsert fetches or lazily creates the record for barcode and
	// applies mutate under per-barcode serialization. A mutate error
	// aborts the write and is returned verbatim.
	Upsert(ctx context.Context, barcode string, mutate func(*model.VoteRecord) error) (*model.VoteRecord, error)

	// Update is Upsert without the create: ErrNotFound when absent.
	Update(ctx context.Context, barcode string, mutate func(*model.VoteRecord) error) (*model.VoteRecord, error)

	// Get returns a copy of the record, or ErrNotFound.
	Get(ctx context.Context, barcode string) (*model.VoteRecord, error)

	// Rank returns the 1-based leaderboard rank of barcode, ordered by
	// weighted score desc with barcode asc as the tie-breaker.
	Rank(ctx context.Context, barcode string) (int, error)

	// TopN returns up to n records in rank order.
	TopN(ctx context.Context, n int) ([]*model.VoteRecord, error)

	// Page returns one page of the funding queue.
	Page(ctx context.Context, q PageQuery) (PageResult, error)

	// ByVoter returns every record whose voter set contains identity,
	// ordered by weighted score desc. Unknown identities yield an
	// empty slice, not an error.
	ByVoter(ctx context.Context, identity string) ([]*model.VoteRecord, error)

	// SetStatus transitions the lifecycle status of barcode. Called by
	// the external moderation/funding workflow, never by ingestion.
	SetStatus(ctx context.Context, barcode string, status model.Status) error

	// Count returns the number of ledger records.
	Count(ctx context.Context) int
}
