package testvotes

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/openlabel/demand/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "test_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the test votes tool.
func ShowHelp() {
	os.Stdout.WriteString(`Demand Engine Vote Test Tool
============================

A concurrent tool for exercising the demand engine with synthetic vote
and contribution traffic.

Usage:
  go run cmd/test-votes/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -votes int
        Number of votes to generate and submit (default 10000)
  -barcodes int
        Number of distinct barcodes to spread votes across (default 200)
  -top int
        Number of top entries to fetch from leaderboard (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -contributions float
        Fraction of barcodes that receive an evidence contribution (default 0.1)
  -output string
        Output file for generated votes (default: generated_votes_TIMESTAMP.json)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run cmd/test-votes/main.go

  # Test with custom parameters
  go run cmd/test-votes/main.go -votes 50000 -barcodes 500 -workers 16 -url http://localhost:8080

  # Test with verbose output
  go run cmd/test-votes/main.go -verbose -votes 10000

  # Test with custom log file
  go run cmd/test-votes/main.go -votes 50000 -log my_test.log
`)
}
