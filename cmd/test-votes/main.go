package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/openlabel/demand/internal/testvotes"
)

// Default configuration constants.
const (
	defaultNumVotes         = 10000
	defaultNumBarcodes      = 200
	defaultTopN             = 50
	defaultWorkers          = 2 // multiplier for runtime.NumCPU()
	defaultTimeout          = 30 * time.Second
	defaultContributionRate = 0.1
	defaultTestTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL          = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numVotes         = flag.Int("votes", defaultNumVotes, "Number of votes to generate and submit")
		numBarcodes      = flag.Int("barcodes", defaultNumBarcodes, "Number of distinct barcodes to spread votes across")
		topN             = flag.Int("top", defaultTopN, "Number of top entries to fetch from leaderboard")
		workers          = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout          = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		contributionRate = flag.Float64("contributions", defaultContributionRate, "Fraction of barcodes that receive an evidence contribution")
		outputFile       = flag.String("output", "", "Output file for generated votes (default: generated_votes_TIMESTAMP.json)")
		logFile          = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose          = flag.Bool("verbose", false, "Enable verbose logging")
		help             = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testvotes.ShowHelp()
		return
	}

	// Setup logging
	if err := testvotes.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testvotes.Config{
		BaseURL:          *baseURL,
		NumVotes:         *numVotes,
		NumBarcodes:      *numBarcodes,
		TopN:             *topN,
		Workers:          *workers,
		Timeout:          *timeout,
		ContributionRate: *contributionRate,
		OutputFile:       *outputFile,
		LogFile:          *logFile,
		Verbose:          *verbose,
	}

	// Run the test
	if err := testvotes.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
