package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/openlabel/demand/internal/domain/model"
)

func castVote(t *testing.T, s *LedgerStore, barcode, identity string, weight int64) *model.VoteRecord {
	t.Helper()
	rec, err := s.Upsert(context.Background(), barcode, func(r *model.VoteRecord) error {
		r.TotalVotes++
		if identity == "" {
			r.WeightedScore += weight
		} else if r.AddVoter(identity) {
			r.WeightedScore += weight
			r.VoterWeight[identity] = weight
		}
		if identity != "" {
			r.VoterVotes[identity]++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("upsert %s: %v", barcode, err)
	}
	return rec
}

func TestUpsertCreatesLazily(t *testing.T) {
	s := NewLedgerStore(context.Background())

	rec := castVote(t, s, "0001", "u1", 20)
	if rec.TotalVotes != 1 || rec.WeightedScore != 20 {
		t.Fatalf("unexpected record after first vote: %+v", rec)
	}
	if rec.Status != model.StatusVoting {
		t.Errorf("expected initial status voting, got %s", rec.Status)
	}
	if s.Count(context.Background()) != 1 {
		t.Errorf("expected 1 record, got %d", s.Count(context.Background()))
	}
}

func TestUpdateRequiresExistence(t *testing.T) {
	s := NewLedgerStore(context.Background())
	_, err := s.Update(context.Background(), "nope", func(r *model.VoteRecord) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutateErrorAbortsCreate(t *testing.T) {
	s := NewLedgerStore(context.Background())
	boom := errors.New("boom")
	_, err := s.Upsert(context.Background(), "0001", func(r *model.VoteRecord) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutate error back, got %v", err)
	}
	if _, err := s.Get(context.Background(), "0001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("aborted create must not publish a record, got %v", err)
	}
}

func TestRankAndTopN(t *testing.T) {
	s := NewLedgerStore(context.Background())
	castVote(t, s, "0001", "u1", 20)
	castVote(t, s, "0002", "u2", 5)
	castVote(t, s, "0003", "u3", 50)

	rank, err := s.Rank(context.Background(), "0001")
	if err != nil || rank != 2 {
		t.Fatalf("expected rank 2 for 0001, got %d (%v)", rank, err)
	}

	top, err := s.TopN(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].Barcode != "0003" || top[1].Barcode != "0001" {
		t.Fatalf("unexpected top order: %+v", top)
	}

	// Score changes reseat the rank index.
	castVote(t, s, "0002", "u4", 100)
	rank, _ = s.Rank(context.Background(), "0002")
	if rank != 1 {
		t.Errorf("expected 0002 to move to rank 1, got %d", rank)
	}
}

func TestRankTieBreaksByBarcode(t *testing.T) {
	s := NewLedgerStore(context.Background())
	castVote(t, s, "b", "u1", 5)
	castVote(t, s, "a", "u2", 5)

	ra, _ := s.Rank(context.Background(), "a")
	rb, _ := s.Rank(context.Background(), "b")
	if ra != 1 || rb != 2 {
		t.Errorf("expected tie broken by barcode asc, got a=%d b=%d", ra, rb)
	}
}

func TestPageFilters(t *testing.T) {
	s := NewLedgerStore(context.Background())
	castVote(t, s, "0001", "u1", 20)
	castVote(t, s, "0002", "u2", 600) // already fundable at threshold 500
	castVote(t, s, "0003", "u3", 450)

	t.Run("most_voted", func(t *testing.T) {
		page, err := s.Page(context.Background(), PageQuery{Sort: SortMostVoted, Page: 1, Limit: 2})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 3 || page.TotalPages != 2 {
			t.Fatalf("unexpected paging meta: %+v", page)
		}
		if page.Records[0].Barcode != "0002" || page.Records[1].Barcode != "0003" {
			t.Errorf("unexpected order: %v, %v", page.Records[0].Barcode, page.Records[1].Barcode)
		}
	})

	t.Run("almost_funded excludes fundable records", func(t *testing.T) {
		page, err := s.Page(context.Background(), PageQuery{Sort: SortAlmostFunded, Page: 1, Limit: 10, FundingThreshold: 500})
		if err != nil {
			t.Fatal(err)
		}
		if page.Total != 2 {
			t.Fatalf("expected 2 records below threshold, got %d", page.Total)
		}
		if page.Records[0].Barcode != "0003" {
			t.Errorf("expected closest-to-threshold first, got %s", page.Records[0].Barcode)
		}
	})

	t.Run("page past the end is empty, not an error", func(t *testing.T) {
		page, err := s.Page(context.Background(), PageQuery{Sort: SortMostVoted, Page: 9, Limit: 10})
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Records) != 0 || page.Total != 3 {
			t.Errorf("unexpected page: %+v", page)
		}
	})
}

func TestPageNewest(t *testing.T) {
	s := NewLedgerStore(context.Background())
	castVote(t, s, "0001", "u1", 5)
	time.Sleep(5 * time.Millisecond)
	castVote(t, s, "0002", "u2", 5)

	page, err := s.Page(context.Background(), PageQuery{Sort: SortNewest, Page: 1, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.Records[0].Barcode != "0002" {
		t.Errorf("expected newest record first, got %s", page.Records[0].Barcode)
	}
}

func TestByVoter(t *testing.T) {
	s := NewLedgerStore(context.Background())
	castVote(t, s, "0001", "u1", 20)
	castVote(t, s, "0002", "u1", 5)
	castVote(t, s, "0003", "u2", 5)

	recs, err := s.ByVoter(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Barcode != "0001" {
		t.Fatalf("unexpected investigations: %+v", recs)
	}

	recs, err = s.ByVoter(context.Background(), "stranger")
	if err != nil || len(recs) != 0 {
		t.Errorf("unknown identity should yield empty slice, got %v (%v)", recs, err)
	}
}

func TestSetStatus(t *testing.T) {
	s := NewLedgerStore(context.Background())
	castVote(t, s, "0001", "u1", 20)

	if err := s.SetStatus(context.Background(), "0001", model.StatusQueued); err != nil {
		t.Fatal(err)
	}
	rec, _ := s.Get(context.Background(), "0001")
	if rec.Status != model.StatusQueued {
		t.Errorf("expected status queued, got %s", rec.Status)
	}
	if err := s.SetStatus(context.Background(), "nope", model.StatusQueued); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := NewLedgerStore(context.Background())
	rec := castVote(t, s, "0001", "u1", 20)
	rec.WeightedScore = 9999
	rec.Voters[0] = "tampered"

	fresh, _ := s.Get(context.Background(), "0001")
	if fresh.WeightedScore != 20 || fresh.Voters[0] != "u1" {
		t.Error("store handed out a live reference")
	}
}

func TestConcurrentFirstVotes(t *testing.T) {
	// N concurrent first votes on an unseen barcode must produce one
	// record with totalVotes == N and a correctly summed score.
	s := NewLedgerStore(context.Background())
	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			castVoteConcurrent(s, "hot-0001", fmt.Sprintf("u%d", i), 5)
		}(i)
	}
	wg.Wait()

	rec, err := s.Get(context.Background(), "hot-0001")
	if err != nil {
		t.Fatal(err)
	}
	if rec.TotalVotes != n {
		t.Errorf("lost vote increments: totalVotes=%d, want %d", rec.TotalVotes, n)
	}
	if rec.WeightedScore != n*5 {
		t.Errorf("lost score increments: score=%d, want %d", rec.WeightedScore, n*5)
	}
	if len(rec.Voters) != n {
		t.Errorf("lost voter registrations: %d, want %d", len(rec.Voters), n)
	}
	if s.Count(context.Background()) != 1 {
		t.Errorf("duplicate records created: %d", s.Count(context.Background()))
	}
}

func castVoteConcurrent(s *LedgerStore, barcode, identity string, weight int64) {
	_, _ = s.Upsert(context.Background(), barcode, func(r *model.VoteRecord) error {
		r.TotalVotes++
		if r.AddVoter(identity) {
			r.WeightedScore += weight
			r.VoterWeight[identity] = weight
		}
		r.VoterVotes[identity]++
		return nil
	})
}

func TestConcurrentMixedReadsAndWrites(t *testing.T) {
	s := NewLedgerStore(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bc := fmt.Sprintf("%04d", i%4)
			for j := 0; j < 50; j++ {
				castVoteConcurrent(s, bc, fmt.Sprintf("u%d-%d", i, j), 5)
				_, _ = s.TopN(context.Background(), 10)
				_, _ = s.Rank(context.Background(), bc)
				_, _ = s.Page(context.Background(), PageQuery{Sort: SortMostVoted, Page: 1, Limit: 10})
			}
		}(i)
	}
	wg.Wait()

	if s.Count(context.Background()) != 4 {
		t.Errorf("expected 4 records, got %d", s.Count(context.Background()))
	}
	top, _ := s.TopN(context.Background(), 4)
	for _, rec := range top {
		if rec.WeightedScore != 4*50*5 {
			t.Errorf("record %s lost updates: score=%d", rec.Barcode, rec.WeightedScore)
		}
	}
}
