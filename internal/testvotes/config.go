package testvotes

import "time"

// Config holds configuration for the vote traffic test
type Config struct {
	BaseURL          string        // Base URL of the service
	NumVotes         int           // Number of votes to generate
	NumBarcodes      int           // Number of distinct barcodes to spread votes across
	TopN             int           // Number of top entries to fetch
	Workers          int           // Number of concurrent workers
	Timeout          time.Duration // HTTP request timeout
	ContributionRate float64       // Fraction of barcodes that receive an evidence contribution
	OutputFile       string        // Output file for generated votes
	LogFile          string        // Log file for test output
	Verbose          bool          // Enable verbose logging
}

// Vote represents a vote to be submitted
type Vote struct {
	Barcode  string      `json:"barcode"`
	VoteType string      `json:"vote_type"`
	Identity string      `json:"identity,omitempty"`
	EventID  string      `json:"event_id"`
	Product  ProductInfo `json:"product_info"`
}

// ProductInfo carries optional product metadata on a vote.
type ProductInfo struct {
	Name     string `json:"name,omitempty"`
	Brand    string `json:"brand,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Contribution represents an evidence contribution to be submitted
type Contribution struct {
	Barcode     string `json:"barcode"`
	Identity    string `json:"identity"`
	EvidenceRef string `json:"evidence_reference_id"`
}

// Entry represents a leaderboard entry
type Entry struct {
	Rank          int    `json:"rank"`
	Barcode       string `json:"barcode"`
	WeightedScore int64  `json:"total_weighted_votes"`
	TotalVotes    int64  `json:"total_votes"`
}

// StatusView represents a barcode status response
type StatusView struct {
	Barcode       string `json:"barcode"`
	Exists        bool   `json:"exists"`
	TotalVotes    int64  `json:"total_votes"`
	WeightedScore int64  `json:"total_weighted_votes"`
	Rank          int    `json:"rank"`
}

// VoteReceipt represents the response from vote submission
type VoteReceipt struct {
	Barcode       string `json:"barcode"`
	TotalVotes    int64  `json:"total_votes"`
	WeightedScore int64  `json:"total_weighted_votes"`
	Duplicate     bool   `json:"duplicate"`
}

// Stats holds test statistics
type Stats struct {
	VotesGenerated         int
	VotesSubmitted         int
	VotesSuccessful        int
	VotesDuplicate         int
	VotesFailed            int
	ContributionsSubmitted int
	ContributionsAwarded   int
	StatusesRetrieved      int
	LeaderboardEntries     int
	StartTime              time.Time
	EndTime                time.Time
	Duration               time.Duration
}
