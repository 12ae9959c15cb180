package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/openlabel/demand/internal/app"
	"github.com/openlabel/demand/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func barcodeN(i int) string {
	return fmt.Sprintf("%08d", i)
}

func productNamed(name, brand string) model.ProductInfo {
	return model.ProductInfo{Name: name, Brand: brand}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startedService(t,
			service.WithWorkerCount(2),
			service.WithQueueSize(1000),
			service.WithDedupeSize(500),
		)

		Convey("When a product moves through a full demand cycle", func() {
			// Anonymous scan opens the record.
			receipt, err := svc.CastVote(ctx, service.VoteInput{Barcode: "0001", VoteType: "scan"})
			So(err, ShouldBeNil)
			So(receipt.TotalVotes, ShouldEqual, 1)
			So(receipt.WeightedScore, ShouldEqual, 5)

			// An authenticated user scans, then re-scans.
			receipt, err = svc.CastVote(ctx, service.VoteInput{Barcode: "0001", VoteType: "member_scan", Identity: "u1"})
			So(err, ShouldBeNil)
			So(receipt.WeightedScore, ShouldEqual, 25)
			receipt, err = svc.CastVote(ctx, service.VoteInput{Barcode: "0001", VoteType: "scan", Identity: "u1"})
			So(err, ShouldBeNil)
			So(receipt.TotalVotes, ShouldEqual, 3)
			So(receipt.WeightedScore, ShouldEqual, 25)

			// A second user contributes evidence.
			contrib, err := svc.Contribute(ctx, service.ContributionInput{
				Barcode:     "0001",
				Identity:    "u2",
				EvidenceRef: "photo-1",
			})
			So(err, ShouldBeNil)
			So(contrib.BountyAwarded, ShouldBeTrue)
			So(contrib.WeightedScore, ShouldEqual, 35)

			Convey("Then the read side agrees with ingestion", func() {
				view, err := svc.Status(ctx, "0001")
				So(err, ShouldBeNil)
				So(view.Exists, ShouldBeTrue)
				So(view.TotalVotes, ShouldEqual, 3)
				So(view.WeightedScore, ShouldEqual, 35)
				So(view.ScansLast24h, ShouldEqual, 3)

				entries, err := svc.Leaderboard(ctx, 10)
				So(err, ShouldBeNil)
				So(entries[0].Barcode, ShouldEqual, "0001")

				stats := svc.GetStats()
				So(stats["totalRecords"], ShouldEqual, 1)
			})
		})

		Convey("When N clients first-vote the same barcode concurrently", func() {
			const voters = 64
			var wg sync.WaitGroup
			errs := make(chan error, voters)
			for i := 0; i < voters; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := svc.CastVote(ctx, service.VoteInput{
						Barcode:  "race-0001",
						VoteType: "scan",
						Identity: fmt.Sprintf("u%d", i),
					})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				So(err, ShouldBeNil)
			}

			Convey("Then exactly one record exists with no lost increments", func() {
				view, err := svc.Status(ctx, "race-0001")
				So(err, ShouldBeNil)
				So(view.TotalVotes, ShouldEqual, voters)
				So(view.WeightedScore, ShouldEqual, voters*5)
			})
		})
	})
}

func TestServiceMilestones(t *testing.T) {
	Convey("Given a low funding threshold and a capturing notifier", t, func() {
		notifier := &recordingNotifier{}
		svc, ctx := startedService(t,
			service.WithFundingThreshold(10),
			service.WithTrendingThreshold(3),
			service.WithNotifier(notifier),
			service.WithWorkerCount(1),
		)

		Convey("When votes push a record across both thresholds", func() {
			for i := 0; i < 3; i++ {
				_, err := svc.CastVote(ctx, service.VoteInput{Barcode: "4001", VoteType: "scan"})
				So(err, ShouldBeNil)
			}

			Convey("Then funded and trending milestones reach the notifier once each", func() {
				waitFor(t, func() bool { return notifier.count() >= 2 })
				kinds := notifier.kinds()
				So(kinds[model.MilestoneFunded], ShouldEqual, 1)
				So(kinds[model.MilestoneTrending], ShouldEqual, 1)

				// Further votes stay above both thresholds; no re-emission.
				_, err := svc.CastVote(ctx, service.VoteInput{Barcode: "4001", VoteType: "scan"})
				So(err, ShouldBeNil)
				time.Sleep(50 * time.Millisecond)
				So(notifier.count(), ShouldEqual, 2)
			})
		})

		Convey("When a bounty pushes a record across the funding threshold", func() {
			_, err := svc.CastVote(ctx, service.VoteInput{Barcode: "4002", VoteType: "search", Identity: "u1"})
			So(err, ShouldBeNil)
			_, err = svc.Contribute(ctx, service.ContributionInput{
				Barcode:     "4002",
				Identity:    "u2",
				EvidenceRef: "photo-1",
			})
			So(err, ShouldBeNil)

			Convey("Then a funded milestone is emitted", func() {
				waitFor(t, func() bool { return notifier.kinds()[model.MilestoneFunded] >= 1 })
				So(notifier.kinds()[model.MilestoneFunded], ShouldEqual, 1)
			})
		})
	})
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []model.Milestone
}

func (n *recordingNotifier) Notify(_ context.Context, m model.Milestone) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, m)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.seen)
}

func (n *recordingNotifier) kinds() map[model.MilestoneKind]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[model.MilestoneKind]int)
	for _, m := range n.seen {
		out[m.Kind]++
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not reached in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
