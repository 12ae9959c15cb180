package repository

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/openlabel/demand/internal/domain/model"
	"github.com/openlabel/demand/pkg/metrics"
)

// Default ledger configuration constants.
const (
	defaultShardCount = 8
	defaultPageLimit  = 20
)

// LedgerStore is the in-memory Store implementation.
//
// Records live in hash-sharded maps; every read-modify-write for a
// barcode runs under its shard lock, which serializes concurrent votes
// on the same barcode without any cross-barcode contention. A treap
// keyed by (score desc, barcode asc) indexes ranking, re-keyed inside
// the same critical section that changes a score, so rank reads never
// observe a half-applied update. Lock order is always shard -> index.
type LedgerStore struct {
	shards     []*shard
	shardCount int

	idx struct {
		sync.RWMutex
		tree   *treap
		scores map[string]int64
	}

	voters struct {
		sync.RWMutex
		byIdentity map[string]map[string]struct{}
	}
}

type shard struct {
	mu   sync.Mutex
	recs map[string]*model.VoteRecord
}

// NewLedgerStore creates an empty ledger.
func NewLedgerStore(_ context.Context, opts ...Option) *LedgerStore {
	s := &LedgerStore{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{recs: make(map[string]*model.VoteRecord)}
	}
	s.idx.tree = newTreap(rand.New(rand.NewSource(time.Now().UnixNano()))) //nolint:gosec // priorities only need statistical balance
	s.idx.scores = make(map[string]int64)
	s.voters.byIdentity = make(map[string]map[string]struct{})
	metrics.UpdateLedgerShardCount(s.shardCount)
	return s
}

func (s *LedgerStore) shardFor(barcode string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(barcode))
	return s.shards[int(h.Sum32())%s.shardCount]
}

// Upsert fetches or creates the record for barcode and applies mutate
// under the shard lock.
func (s *LedgerStore) Upsert(ctx context.Context, barcode string, mutate func(*model.VoteRecord) error) (*model.VoteRecord, error) {
	return s.apply(ctx, barcode, mutate, true)
}

// Update applies mutate to an existing record, or returns ErrNotFound.
func (s *LedgerStore) Update(ctx context.Context, barcode string, mutate func(*model.VoteRecord) error) (*model.VoteRecord, error) {
	return s.apply(ctx, barcode, mutate, false)
}

func (s *LedgerStore) apply(_ context.Context, barcode string, mutate func(*model.VoteRecord) error, create bool) (*model.VoteRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLedgerUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shardFor(barcode)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.recs[barcode]
	created := false
	if !ok {
		if !create {
			return nil, ErrNotFound
		}
		rec = model.NewVoteRecord(barcode, time.Now())
		created = true
	}

	oldScore := rec.WeightedScore
	oldVoters := len(rec.Voters)
	if err := mutate(rec); err != nil {
		// A mutate error on a freshly created record aborts the
		// lazy upsert entirely; nothing was published yet.
		return nil, err
	}
	if created {
		sh.recs[barcode] = rec
	}

	if created || rec.WeightedScore != oldScore {
		s.reindex(barcode, oldScore, rec.WeightedScore, created)
	}
	if created {
		metrics.UpdateLedgerSize(s.Count(context.Background()))
	}
	if len(rec.Voters) > oldVoters {
		s.indexVoters(barcode, rec.Voters[oldVoters:])
	}
	return rec.Clone(), nil
}

// reindex reseats barcode in the rank treap. Runs while the caller
// still holds the shard lock; shard -> index is the global lock order.
func (s *LedgerStore) reindex(barcode string, oldScore, newScore int64, created bool) {
	s.idx.Lock()
	defer s.idx.Unlock()
	if !created {
		s.idx.tree.delete(barcode, oldScore)
	}
	s.idx.tree.insert(barcode, newScore)
	s.idx.scores[barcode] = newScore
}

func (s *LedgerStore) indexVoters(barcode string, identities []string) {
	s.voters.Lock()
	defer s.voters.Unlock()
	for _, id := range identities {
		set, ok := s.voters.byIdentity[id]
		if !ok {
			set = make(map[string]struct{})
			s.voters.byIdentity[id] = set
		}
		set[barcode] = struct{}{}
	}
}

// Get returns a copy of the record for barcode.
func (s *LedgerStore) Get(_ context.Context, barcode string) (*model.VoteRecord, error) {
	sh := s.shardFor(barcode)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec, ok := sh.recs[barcode]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Rank returns the 1-based rank of barcode.
func (s *LedgerStore) Rank(_ context.Context, barcode string) (int, error) {
	s.idx.RLock()
	defer s.idx.RUnlock()
	score, ok := s.idx.scores[barcode]
	if !ok {
		return 0, ErrNotFound
	}
	return s.idx.tree.rankOf(barcode, score), nil
}

// TopN returns up to n records in rank order.
func (s *LedgerStore) TopN(ctx context.Context, n int) ([]*model.VoteRecord, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.idx.RLock()
	barcodes := s.idx.tree.topN(n)
	s.idx.RUnlock()

	out := make([]*model.VoteRecord, 0, len(barcodes))
	for _, bc := range barcodes {
		rec, err := s.Get(ctx, bc)
		if err != nil {
			// Records are never hard-deleted; an index entry
			// without a record cannot happen in steady state.
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Page returns one page of the funding queue.
func (s *LedgerStore) Page(_ context.Context, q PageQuery) (PageResult, error) {
	if q.Limit < 1 {
		q.Limit = defaultPageLimit
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if !q.Sort.Valid() {
		q.Sort = SortMostVoted
	}

	all := s.snapshot()
	if q.Sort == SortAlmostFunded {
		kept := all[:0]
		for _, rec := range all {
			if rec.WeightedScore < q.FundingThreshold {
				kept = append(kept, rec)
			}
		}
		all = kept
	}

	switch q.Sort {
	case SortNewest:
		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.After(all[j].CreatedAt)
			}
			return all[i].Barcode < all[j].Barcode
		})
	case SortAlmostFunded:
		sort.Slice(all, func(i, j int) bool {
			if all[i].WeightedScore != all[j].WeightedScore {
				return all[i].WeightedScore > all[j].WeightedScore
			}
			return all[i].Barcode < all[j].Barcode
		})
	default: // SortMostVoted
		sort.Slice(all, func(i, j int) bool {
			if all[i].WeightedScore != all[j].WeightedScore {
				return all[i].WeightedScore > all[j].WeightedScore
			}
			return all[i].Barcode < all[j].Barcode
		})
	}

	total := len(all)
	totalPages := (total + q.Limit - 1) / q.Limit
	if totalPages == 0 {
		totalPages = 1
	}
	startIdx := (q.Page - 1) * q.Limit
	if startIdx >= total {
		return PageResult{Records: nil, Page: q.Page, TotalPages: totalPages, Total: total}, nil
	}
	end := startIdx + q.Limit
	if end > total {
		end = total
	}
	return PageResult{Records: all[startIdx:end], Page: q.Page, TotalPages: totalPages, Total: total}, nil
}

// ByVoter returns every record identity has cast a scoring vote on.
func (s *LedgerStore) ByVoter(ctx context.Context, identity string) ([]*model.VoteRecord, error) {
	s.voters.RLock()
	barcodes := make([]string, 0, len(s.voters.byIdentity[identity]))
	for bc := range s.voters.byIdentity[identity] {
		barcodes = append(barcodes, bc)
	}
	s.voters.RUnlock()

	out := make([]*model.VoteRecord, 0, len(barcodes))
	for _, bc := range barcodes {
		rec, err := s.Get(ctx, bc)
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeightedScore != out[j].WeightedScore {
			return out[i].WeightedScore > out[j].WeightedScore
		}
		return out[i].Barcode < out[j].Barcode
	})
	return out, nil
}

// SetStatus transitions the lifecycle status of barcode.
func (s *LedgerStore) SetStatus(ctx context.Context, barcode string, status model.Status) error {
	_, err := s.Update(ctx, barcode, func(rec *model.VoteRecord) error {
		rec.Status = status
		rec.UpdatedAt = time.Now()
		return nil
	})
	return err
}

// Count returns the number of ledger records.
func (s *LedgerStore) Count(_ context.Context) int {
	s.idx.RLock()
	defer s.idx.RUnlock()
	return s.idx.tree.len()
}

// snapshot copies every record out of the shards. Shards are visited
// one at a time; the result is a consistent-enough read view for the
// paginated queue, not a point-in-time snapshot.
func (s *LedgerStore) snapshot() []*model.VoteRecord {
	out := make([]*model.VoteRecord, 0, s.Count(context.Background()))
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, rec := range sh.recs {
			out = append(out, rec.Clone())
		}
		sh.mu.Unlock()
	}
	return out
}
