package testvotes

import (
	"fmt"
	"log"
	"sort"
)

// verifyResults checks that the leaderboard agrees with the per-barcode
// statuses retrieved independently.
func verifyResults(config *Config, statuses []StatusView, leaderboard []Entry) error {
	log.Println("🔍 Verifying results...")

	if len(statuses) == 0 {
		return fmt.Errorf("no statuses to verify")
	}

	// Sort statuses by weighted score (descending) to get top demand
	sortedStatuses := make([]StatusView, len(statuses))
	copy(sortedStatuses, statuses)
	sort.Slice(sortedStatuses, func(i, j int) bool {
		if sortedStatuses[i].WeightedScore != sortedStatuses[j].WeightedScore {
			return sortedStatuses[i].WeightedScore > sortedStatuses[j].WeightedScore
		}
		return sortedStatuses[i].Barcode < sortedStatuses[j].Barcode
	})

	// Verify leaderboard consistency if we have leaderboard data
	if len(leaderboard) > 0 {
		if err := verifyLeaderboardConsistency(sortedStatuses, leaderboard); err != nil {
			log.Printf("⚠️  Leaderboard consistency warning: %v", err)
		} else {
			log.Println("✅ Leaderboard consistency verified")
		}
	}

	// Display the most demanded products
	displayTopDemand(sortedStatuses, leaderboard, config.Verbose)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyLeaderboardConsistency checks if the leaderboard matches the
// independently retrieved statuses.
func verifyLeaderboardConsistency(sortedStatuses []StatusView, leaderboard []Entry) error {
	if len(leaderboard) == 0 {
		return fmt.Errorf("empty leaderboard")
	}

	// Check if the top leaderboard entry matches the highest scored barcode
	topStatus := sortedStatuses[0]
	topLeaderboard := leaderboard[0]

	if topStatus.Barcode != topLeaderboard.Barcode {
		return fmt.Errorf("top leaderboard entry (%s) does not match top scored barcode (%s)",
			topLeaderboard.Barcode, topStatus.Barcode)
	}

	if topStatus.WeightedScore != topLeaderboard.WeightedScore {
		return fmt.Errorf("top leaderboard score (%d) does not match top status score (%d)",
			topLeaderboard.WeightedScore, topStatus.WeightedScore)
	}

	// Check if the leaderboard is properly sorted and ranks are contiguous
	for i := 1; i < len(leaderboard); i++ {
		if leaderboard[i].WeightedScore > leaderboard[i-1].WeightedScore {
			return fmt.Errorf("leaderboard not properly sorted: entry %d has higher score than entry %d",
				i, i-1)
		}
		if leaderboard[i].Rank != leaderboard[i-1].Rank+1 {
			return fmt.Errorf("leaderboard ranks not contiguous at entry %d", i)
		}
	}

	return nil
}

// displayTopDemand shows the most demanded barcodes from statuses and
// the leaderboard.
func displayTopDemand(sortedStatuses []StatusView, leaderboard []Entry, verbose bool) {
	topN := 10
	if len(sortedStatuses) < topN {
		topN = len(sortedStatuses)
	}

	log.Printf("🏆 Top %d barcodes by status:", topN)
	for i := 0; i < topN; i++ {
		status := sortedStatuses[i]
		log.Printf("   %d. %s - Score: %d (%d votes)", i+1, status.Barcode, status.WeightedScore, status.TotalVotes)
	}

	if len(leaderboard) > 0 {
		leaderboardTopN := topN
		if len(leaderboard) < leaderboardTopN {
			leaderboardTopN = len(leaderboard)
		}

		log.Printf("🥇 Top %d barcodes from leaderboard:", leaderboardTopN)
		for i := 0; i < leaderboardTopN; i++ {
			entry := leaderboard[i]
			log.Printf("   %d. %s - Score: %d (%d votes)", entry.Rank, entry.Barcode, entry.WeightedScore, entry.TotalVotes)
		}
	}

	if verbose {
		// Show some statistics
		if len(sortedStatuses) > 0 {
			avgScore := calculateAverageScore(sortedStatuses)
			maxScore := sortedStatuses[0].WeightedScore
			minScore := sortedStatuses[len(sortedStatuses)-1].WeightedScore

			log.Printf(`📊 Score statistics:
   Average: %.1f
   Maximum: %d
   Minimum: %d
`, avgScore, maxScore, minScore)
		}
	}
}

// calculateAverageScore calculates the average weighted score.
func calculateAverageScore(statuses []StatusView) float64 {
	if len(statuses) == 0 {
		return 0
	}

	sum := int64(0)
	for _, status := range statuses {
		sum += status.WeightedScore
	}

	return float64(sum) / float64(len(statuses))
}
