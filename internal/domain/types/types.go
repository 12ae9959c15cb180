// Package types contains the read-side view shapes shared between the
// service layer and the HTTP API.
package types

// VoteReceipt is returned to the caller after a vote event is applied.
type VoteReceipt struct {
	Barcode         string      `json:"barcode"`
	TotalVotes      int64       `json:"total_votes"`
	WeightedScore   int64       `json:"total_weighted_votes"`
	YourVoteRank    int64       `json:"your_vote_rank"`
	FundingProgress float64     `json:"funding_progress"`
	Rank            int         `json:"rank"`
	Product         ProductInfo `json:"product_info"`
	Duplicate       bool        `json:"duplicate,omitempty"`
}

// ProductInfo mirrors the denormalized product metadata on a record.
type ProductInfo struct {
	Name     string `json:"name,omitempty"`
	Brand    string `json:"brand,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// StatusView answers a barcode status lookup. Exists distinguishes a
// never-voted barcode from one with recorded demand.
type StatusView struct {
	Barcode         string  `json:"barcode"`
	Exists          bool    `json:"exists"`
	TotalVotes      int64   `json:"total_votes"`
	WeightedScore   int64   `json:"total_weighted_votes"`
	Status          string  `json:"status,omitempty"`
	Rank            int     `json:"rank,omitempty"`
	FundingProgress float64 `json:"funding_progress"`
	ScansLast24h    int     `json:"scans_last_24h"`
}

// Entry is a ranked leaderboard row.
type Entry struct {
	Rank          int    `json:"rank"`
	Barcode       string `json:"barcode"`
	WeightedScore int64  `json:"total_weighted_votes"`
	TotalVotes    int64  `json:"total_votes"`
	ProductName   string `json:"product_name,omitempty"`
	Status        string `json:"status"`
}

// QueueItem is one row of the paginated funding queue.
type QueueItem struct {
	Barcode         string  `json:"barcode"`
	WeightedScore   int64   `json:"total_weighted_votes"`
	TotalVotes      int64   `json:"total_votes"`
	FundingProgress float64 `json:"funding_progress"`
	ScansLast24h    int     `json:"scans_last_24h"`
	ProductName     string  `json:"product_name,omitempty"`
	Status          string  `json:"status"`
}

// QueuePage is a page of the funding queue.
type QueuePage struct {
	Items      []QueueItem `json:"items"`
	Page       int         `json:"page"`
	TotalPages int         `json:"total_pages"`
	Total      int         `json:"total"`
}

// Investigation annotates a record with one identity's contribution.
type Investigation struct {
	Barcode         string  `json:"barcode"`
	WeightedScore   int64   `json:"total_weighted_votes"`
	TotalVotes      int64   `json:"total_votes"`
	Status          string  `json:"status"`
	FundingProgress float64 `json:"funding_progress"`
	Rank            int     `json:"rank"`
	YourVotes       int64   `json:"your_votes"`
	YourWeight      int64   `json:"your_weight"`
	BountyClaimed   bool    `json:"bounty_claimed"`
}

// ContributionResult reports the outcome of an evidence contribution.
type ContributionResult struct {
	Barcode       string `json:"barcode"`
	BountyAwarded bool   `json:"bounty_awarded"`
	BonusWeight   int64  `json:"bonus_weight"`
	Outcome       string `json:"outcome"`
	Message       string `json:"message"`
	WeightedScore int64  `json:"total_weighted_votes"`
}
