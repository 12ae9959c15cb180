package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/openlabel/demand/internal/app"
	"github.com/openlabel/demand/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func startedService(t *testing.T, opts ...service.Option) (*service.Service, context.Context) {
	t.Helper()
	svc := service.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("service failed to start: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc, ctx
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(50_000),
			service.WithDedupeSize(25_000),
			service.WithShardCount(2),
			service.WithFundingThreshold(100),
			service.WithBountyWeight(5),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_CastVote(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startedService(t)

		Convey("When casting an anonymous scan vote", func() {
			receipt, err := svc.CastVote(ctx, service.VoteInput{
				Barcode:  "0001",
				VoteType: "scan",
			})

			Convey("Then the record is created with the scan weight", func() {
				So(err, ShouldBeNil)
				So(receipt.TotalVotes, ShouldEqual, 1)
				So(receipt.WeightedScore, ShouldEqual, 5)
				So(receipt.Rank, ShouldEqual, 1)
				So(receipt.FundingProgress, ShouldEqual, 1.0)
			})
		})

		Convey("When the same identity votes twice", func() {
			first, err := svc.CastVote(ctx, service.VoteInput{
				Barcode:  "0002",
				VoteType: "member_scan",
				Identity: "u1",
			})
			So(err, ShouldBeNil)
			second, err := svc.CastVote(ctx, service.VoteInput{
				Barcode:  "0002",
				VoteType: "scan",
				Identity: "u1",
			})
			So(err, ShouldBeNil)

			Convey("Then weight is added only once but votes keep counting", func() {
				So(first.WeightedScore, ShouldEqual, 20)
				So(second.TotalVotes, ShouldEqual, 2)
				So(second.WeightedScore, ShouldEqual, 20)
			})

			Convey("And the identity's vote rank is monotonic", func() {
				So(first.YourVoteRank, ShouldEqual, 1)
				So(second.YourVoteRank, ShouldEqual, 2)
			})
		})

		Convey("When casting a vote without a barcode", func() {
			_, err := svc.CastVote(ctx, service.VoteInput{VoteType: "scan"})

			Convey("Then it fails validation with a stable reason", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
				So(service.Reason(err), ShouldEqual, service.ReasonBarcodeRequired)
			})
		})

		Convey("When casting a vote with an unknown type", func() {
			_, err := svc.CastVote(ctx, service.VoteInput{Barcode: "0003", VoteType: "shout"})

			Convey("Then it fails validation with a stable reason", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
				So(service.Reason(err), ShouldEqual, service.ReasonInvalidVoteType)
			})
		})

		Convey("When product metadata arrives across votes", func() {
			_, err := svc.CastVote(ctx, service.VoteInput{
				Barcode:  "0004",
				VoteType: "scan",
				Product:  productNamed("Widget", ""),
			})
			So(err, ShouldBeNil)
			receipt, err := svc.CastVote(ctx, service.VoteInput{
				Barcode:  "0004",
				VoteType: "scan",
				Product:  productNamed("Renamed", "Acme"),
			})
			So(err, ShouldBeNil)

			Convey("Then populated fields are never overwritten", func() {
				So(receipt.Product.Name, ShouldEqual, "Widget")
				So(receipt.Product.Brand, ShouldEqual, "Acme")
			})
		})
	})
}

func TestService_VoteEventIdempotency(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startedService(t)

		Convey("When the same event id is submitted twice", func() {
			first, err := svc.CastVote(ctx, service.VoteInput{
				Barcode:  "0005",
				VoteType: "scan",
				Identity: "u1",
				EventID:  "evt-1",
			})
			So(err, ShouldBeNil)
			replay, err := svc.CastVote(ctx, service.VoteInput{
				Barcode:  "0005",
				VoteType: "scan",
				Identity: "u1",
				EventID:  "evt-1",
			})
			So(err, ShouldBeNil)

			Convey("Then the replay is acknowledged without double-counting", func() {
				So(first.Duplicate, ShouldBeFalse)
				So(replay.Duplicate, ShouldBeTrue)
				So(replay.TotalVotes, ShouldEqual, 1)
				So(replay.WeightedScore, ShouldEqual, first.WeightedScore)
			})
		})
	})
}

func TestService_Status(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc, ctx := startedService(t)

		Convey("When checking a never-voted barcode", func() {
			view, err := svc.Status(ctx, "9999")

			Convey("Then it reports exists=false without an error", func() {
				So(err, ShouldBeNil)
				So(view.Exists, ShouldBeFalse)
				So(view.TotalVotes, ShouldEqual, 0)
			})
		})

		Convey("When checking a voted barcode", func() {
			_, err := svc.CastVote(ctx, service.VoteInput{Barcode: "0006", VoteType: "member_scan", Identity: "u1"})
			So(err, ShouldBeNil)
			view, err := svc.Status(ctx, "0006")

			Convey("Then it reports counters, status and rank", func() {
				So(err, ShouldBeNil)
				So(view.Exists, ShouldBeTrue)
				So(view.TotalVotes, ShouldEqual, 1)
				So(view.WeightedScore, ShouldEqual, 20)
				So(view.Status, ShouldEqual, "voting")
				So(view.Rank, ShouldBeGreaterThan, 0)
				So(view.ScansLast24h, ShouldEqual, 1)
			})
		})

		Convey("When checking without a barcode", func() {
			_, err := svc.Status(ctx, "")

			Convey("Then it fails validation", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestService_Contribute(t *testing.T) {
	Convey("Given a record with an original voter", t, func() {
		svc, ctx := startedService(t)
		_, err := svc.CastVote(ctx, service.VoteInput{Barcode: "0007", VoteType: "member_scan", Identity: "u1"})
		So(err, ShouldBeNil)

		Convey("When a distinct identity contributes evidence", func() {
			result, err := svc.Contribute(ctx, service.ContributionInput{
				Barcode:     "0007",
				Identity:    "u2",
				EvidenceRef: "photo-1",
			})

			Convey("Then the bounty is awarded with the bonus weight", func() {
				So(err, ShouldBeNil)
				So(result.BountyAwarded, ShouldBeTrue)
				So(result.BonusWeight, ShouldEqual, 10)
				So(result.Outcome, ShouldEqual, "awarded")
				So(result.WeightedScore, ShouldEqual, 30)
			})

			Convey("And a second contribution from the same identity is refused", func() {
				again, err := svc.Contribute(ctx, service.ContributionInput{
					Barcode:     "0007",
					Identity:    "u2",
					EvidenceRef: "photo-2",
				})
				So(err, ShouldBeNil)
				So(again.BountyAwarded, ShouldBeFalse)
				So(again.Outcome, ShouldEqual, "already_contributed")
				So(again.Message, ShouldContainSubstring, "already contributed")
			})

			Convey("And another distinct identity still earns its own bounty", func() {
				other, err := svc.Contribute(ctx, service.ContributionInput{
					Barcode:     "0007",
					Identity:    "u3",
					EvidenceRef: "photo-3",
				})
				So(err, ShouldBeNil)
				So(other.BountyAwarded, ShouldBeTrue)
				So(other.BonusWeight, ShouldEqual, 10)
			})
		})

		Convey("When the original voter tries to claim", func() {
			result, err := svc.Contribute(ctx, service.ContributionInput{
				Barcode:     "0007",
				Identity:    "u1",
				EvidenceRef: "photo-4",
			})

			Convey("Then the claim is refused without mutation", func() {
				So(err, ShouldBeNil)
				So(result.BountyAwarded, ShouldBeFalse)
				So(result.Outcome, ShouldEqual, "not_eligible")
				view, err := svc.Status(ctx, "0007")
				So(err, ShouldBeNil)
				So(view.WeightedScore, ShouldEqual, 20)
			})
		})

		Convey("When the same evidence reference is replayed", func() {
			first, err := svc.Contribute(ctx, service.ContributionInput{
				Barcode:     "0007",
				Identity:    "u2",
				EvidenceRef: "photo-5",
			})
			So(err, ShouldBeNil)
			So(first.BountyAwarded, ShouldBeTrue)

			replay, err := svc.Contribute(ctx, service.ContributionInput{
				Barcode:     "0007",
				Identity:    "u9",
				EvidenceRef: "photo-5",
			})

			Convey("Then it is answered without re-evaluating the bounty", func() {
				So(err, ShouldBeNil)
				So(replay.BountyAwarded, ShouldBeFalse)
				So(replay.Outcome, ShouldEqual, "already_contributed")
			})
		})

		Convey("When contributing to an unknown barcode", func() {
			_, err := svc.Contribute(ctx, service.ContributionInput{
				Barcode:     "8888",
				Identity:    "u2",
				EvidenceRef: "photo-6",
			})

			Convey("Then it fails with not found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				So(service.Reason(err), ShouldEqual, service.ReasonBarcodeNotFound)
			})
		})

		Convey("When contribution fields are missing", func() {
			_, err := svc.Contribute(ctx, service.ContributionInput{Barcode: "0007", EvidenceRef: "p"})
			So(service.Reason(err), ShouldEqual, service.ReasonIdentityRequired)

			_, err = svc.Contribute(ctx, service.ContributionInput{Barcode: "0007", Identity: "u2"})
			So(service.Reason(err), ShouldEqual, service.ReasonEvidenceRequired)
		})
	})
}

func TestService_Leaderboard(t *testing.T) {
	Convey("Given a service with many voted barcodes", t, func() {
		svc, ctx := startedService(t)
		for i := 0; i < 60; i++ {
			_, err := svc.CastVote(ctx, service.VoteInput{
				Barcode:  barcodeN(i),
				VoteType: "scan",
			})
			So(err, ShouldBeNil)
		}

		Convey("When requesting far more entries than the cap", func() {
			entries, err := svc.Leaderboard(ctx, 1000)

			Convey("Then at most 50 entries are returned", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldBeLessThanOrEqualTo, 50)
			})
		})

		Convey("When requesting with no limit", func() {
			entries, err := svc.Leaderboard(ctx, 0)

			Convey("Then the default limit applies", func() {
				So(err, ShouldBeNil)
				So(len(entries), ShouldEqual, 10)
				So(entries[0].Rank, ShouldEqual, 1)
			})
		})
	})
}

func TestService_QueuePage(t *testing.T) {
	Convey("Given a service with graded demand", t, func() {
		svc, ctx := startedService(t, service.WithFundingThreshold(100))
		scores := map[string]int{"1001": 1, "1002": 10, "1003": 25}
		for barcode, votes := range scores {
			for i := 0; i < votes; i++ {
				_, err := svc.CastVote(ctx, service.VoteInput{Barcode: barcode, VoteType: "scan"})
				So(err, ShouldBeNil)
			}
		}

		Convey("When paging with the default filter", func() {
			page, err := svc.QueuePage(ctx, 1, 2, "")

			Convey("Then it returns the highest scores first with paging meta", func() {
				So(err, ShouldBeNil)
				So(len(page.Items), ShouldEqual, 2)
				So(page.Items[0].Barcode, ShouldEqual, "1003")
				So(page.Total, ShouldEqual, 3)
				So(page.TotalPages, ShouldEqual, 2)
			})
		})

		Convey("When filtering almost_funded", func() {
			// 1003 is fundable at 125 >= 100 and excluded from the filter.
			page, err := svc.QueuePage(ctx, 1, 10, "almost_funded")

			Convey("Then fundable records are excluded and the closest leads", func() {
				So(err, ShouldBeNil)
				So(len(page.Items), ShouldEqual, 2)
				So(page.Items[0].Barcode, ShouldEqual, "1002")
			})
		})

		Convey("When using an unknown filter", func() {
			_, err := svc.QueuePage(ctx, 1, 10, "loudest")

			Convey("Then it fails validation", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
				So(service.Reason(err), ShouldEqual, service.ReasonInvalidFilter)
			})
		})
	})
}

func TestService_Investigations(t *testing.T) {
	Convey("Given votes from a known identity", t, func() {
		svc, ctx := startedService(t)
		_, err := svc.CastVote(ctx, service.VoteInput{Barcode: "2001", VoteType: "member_scan", Identity: "u1"})
		So(err, ShouldBeNil)
		_, err = svc.CastVote(ctx, service.VoteInput{Barcode: "2002", VoteType: "scan", Identity: "u1"})
		So(err, ShouldBeNil)

		Convey("When listing that identity's investigations", func() {
			list, err := svc.Investigations(ctx, "u1")

			Convey("Then every voted record appears with the identity's share", func() {
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
				So(list[0].Barcode, ShouldEqual, "2001")
				So(list[0].YourWeight, ShouldEqual, 20)
				So(list[0].YourVotes, ShouldEqual, 1)
			})
		})

		Convey("When listing an unknown identity", func() {
			list, err := svc.Investigations(ctx, "nobody")

			Convey("Then an empty list is returned, not an error", func() {
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 0)
			})
		})

		Convey("When the identity is missing", func() {
			_, err := svc.Investigations(ctx, "")

			Convey("Then it fails validation", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
				So(service.Reason(err), ShouldEqual, service.ReasonIdentityRequired)
			})
		})
	})
}

func TestService_SetStatus(t *testing.T) {
	Convey("Given a voted barcode", t, func() {
		svc, ctx := startedService(t)
		_, err := svc.CastVote(ctx, service.VoteInput{Barcode: "3001", VoteType: "scan"})
		So(err, ShouldBeNil)

		Convey("When moderation transitions its status", func() {
			err := svc.SetStatus(ctx, "3001", "funded")

			Convey("Then the status is visible on reads", func() {
				So(err, ShouldBeNil)
				view, err := svc.Status(ctx, "3001")
				So(err, ShouldBeNil)
				So(view.Status, ShouldEqual, "funded")
			})
		})

		Convey("When the status value is unknown", func() {
			err := svc.SetStatus(ctx, "3001", "launched")
			So(service.Reason(err), ShouldEqual, service.ReasonInvalidStatus)
		})

		Convey("When the barcode is unknown", func() {
			err := svc.SetStatus(ctx, "7777", "funded")
			So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
		})
	})
}
