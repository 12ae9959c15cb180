package testvotes

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/openlabel/demand/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	barcodeDivisor     = 1_000_000_000_000
	voteShapeDivisor   = 10
)

// Constants for the vote type distribution. Searches dominate real
// traffic, member scans are rare.
const (
	caseSearchAnon   = 0 // anonymous search, most common
	caseSearchUpper  = 4 // cases 0..4 are anonymous searches
	caseSearchMember = 5 // search with identity
	caseScanLower    = 6 // cases 6..8 are scans with identity
	caseScanUpper    = 8
	caseMemberScan   = 9 // member scan, rare
)

// Sample product catalog used to decorate a fraction of votes.
var sampleProducts = []ProductInfo{
	{Name: "Oat Crunch Cereal", Brand: "Morning Mill"},
	{Name: "Sparkling Yuzu Water", Brand: "Citra"},
	{Name: "Sea Salt Dark Chocolate", Brand: "Cocoa Works"},
	{Name: "Cold Brew Concentrate", Brand: "Night Owl"},
	{Name: "Smoked Almond Butter", Brand: "Grove"},
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateVotes creates the specified number of votes spread across a
// pool of distinct barcodes. A stable set of member identities is
// generated so that repeat votes from the same member occur naturally.
func generateVotes(ctx context.Context, config *Config, stats *Stats) ([]Vote, []string, error) {
	logger.Get().Info(ctx, "generating votes across barcode pool",
		logger.Int("numVotes", config.NumVotes),
		logger.Int("numBarcodes", config.NumBarcodes))

	// Pre-allocate the barcode pool
	barcodes := make([]string, config.NumBarcodes)
	for i := 0; i < config.NumBarcodes; i++ {
		barcodes[i] = generateBarcode()
	}

	// A small stable identity pool so some members vote more than once
	identityPoolSize := config.NumBarcodes
	if identityPoolSize < 1 {
		identityPoolSize = 1
	}
	identities := make([]string, identityPoolSize)
	for i := range identities {
		identities[i] = uuid.New().String()
	}

	votes := make([]Vote, config.NumVotes)

	// Generate votes concurrently
	type voteResult struct {
		index int
		vote  Vote
		err   error
	}

	resultChan := make(chan voteResult, config.NumVotes)

	workerCount := minInt(config.Workers, config.NumVotes)
	votesPerWorker := config.NumVotes / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * votesPerWorker
		end := start + votesPerWorker
		if worker == workerCount-1 {
			end = config.NumVotes // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- voteResult{index: i, err: ctx.Err()}
					return
				default:
					vote := generateSingleVote(i, barcodes, identities)
					resultChan <- voteResult{index: i, vote: vote, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumVotes; i++ {
		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("context cancelled during vote generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, nil, fmt.Errorf("failed to generate vote %d: %w", result.index, result.err)
			}
			votes[result.index] = result.vote
		}
	}

	stats.VotesGenerated = len(votes)
	logger.Get().Info(ctx, "generated votes successfully", logger.Int("count", len(votes)))

	return votes, barcodes, nil
}

// generateSingleVote creates a single vote with the given index.
func generateSingleVote(index int, barcodes, identities []string) Vote {
	// Bias barcode selection toward the front of the pool so the
	// resulting leaderboard has a clear head instead of a flat tail.
	barcodeIdx := skewedIndex(len(barcodes))
	barcode := barcodes[barcodeIdx]

	voteType, identity := generateVoteShape(identities)

	eventID := "vote_" + strconv.FormatInt(int64(index), 10) + "_" + uuid.New().String()

	vote := Vote{
		Barcode:  barcode,
		VoteType: voteType,
		Identity: identity,
		EventID:  eventID,
	}

	// Decorate roughly a fifth of votes with product metadata, the way
	// scanner apps that resolved the product would.
	if getRandomFloat() < 0.2 {
		vote.Product = sampleProducts[barcodeIdx%len(sampleProducts)]
	}

	return vote
}

// generateVoteShape picks a vote type and matching identity using the
// traffic distribution.
func generateVoteShape(identities []string) (string, string) {
	randNum, _ := rand.Int(rand.Reader, big.NewInt(voteShapeDivisor))
	c := randNum.Int64()
	switch {
	case c >= caseSearchAnon && c <= caseSearchUpper:
		// Anonymous search
		return "search", ""
	case c == caseSearchMember:
		// Member search
		return "search", pickIdentity(identities)
	case c >= caseScanLower && c <= caseScanUpper:
		// Scan with identity
		return "scan", pickIdentity(identities)
	case c == caseMemberScan:
		// Member scan, the heavyweight vote
		return "member_scan", pickIdentity(identities)
	default:
		return "search", ""
	}
}

// generateBarcode produces a random 13-digit barcode.
func generateBarcode() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(barcodeDivisor))
	return fmt.Sprintf("%013d", n.Int64())
}

// skewedIndex returns an index in [0, n) biased toward 0.
func skewedIndex(n int) int {
	if n <= 1 {
		return 0
	}
	f := getRandomFloat()
	// Squaring pushes the distribution toward the low indices
	idx := int(f * f * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// pickIdentity selects a random identity from the pool.
func pickIdentity(identities []string) string {
	if len(identities) == 0 {
		return uuid.New().String()
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(identities))))
	return identities[n.Int64()]
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
