package testvotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	return c.client.Get(url)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitVotes submits votes concurrently using worker pools
func submitVotes(ctx context.Context, config *Config, votes []Vote, stats *Stats) error {
	log.Printf("📤 Submitting %d votes with %d workers...", len(votes), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/votes"

	// Counters for statistics
	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool
	voteChan := make(chan Vote, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for vote := range voteChan {
				select {
				case <-ctx.Done():
					return
				default:
					result := submitSingleVote(client, url, vote)

					// Update counters
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
								total, len(votes), succ, dup, fail)
						} else {
							fmt.Printf("\r📤 Submitted: %d/%d (success: %d, duplicate: %d, failed: %d)",
								total, len(votes), succ, dup, fail)
						}
					}
				}
			}
		}()
	}

	// Send votes to workers
	go func() {
		defer close(voteChan)
		for _, vote := range votes {
			select {
			case <-ctx.Done():
				return
			case voteChan <- vote:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		fmt.Println() // New line after progress indicator
	}

	// Update stats
	stats.VotesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.VotesSuccessful = int(atomic.LoadInt64(&successful))
	stats.VotesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.VotesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Vote submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.VotesSuccessful, stats.VotesDuplicate, stats.VotesFailed)

	return nil
}

// submitSingleVote submits a single vote and returns the result
func submitSingleVote(client *HTTPClient, url string, vote Vote) string {
	resp, err := client.Post(url, vote)
	if err != nil {
		return "failed"
	}
	defer resp.Body.Close()

	// Read response body
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	// Parse response based on status code
	switch resp.StatusCode {
	case StatusCreated:
		// Created means a newly counted vote
		return "success"
	case StatusOK:
		// OK means the event ID was a replay
		var receipt VoteReceipt
		if err := unmarshalJSON(body, &receipt); err == nil && receipt.Duplicate {
			return "duplicate"
		}
		return "duplicate" // Assume duplicate for 200 even if parsing fails
	default:
		return "failed"
	}
}

// submitContributions submits an evidence contribution for a sampled
// fraction of barcodes and reports how many bounties were awarded.
func submitContributions(ctx context.Context, config *Config, votes []Vote, barcodes []string, stats *Stats) error {
	// Select barcodes up front by sampling from the pool
	selected := make([]string, 0, len(barcodes))
	for _, barcode := range barcodes {
		if getRandomFloat() < config.ContributionRate {
			selected = append(selected, barcode)
		}
	}
	if len(selected) == 0 {
		return nil
	}

	// Index identities that voted per barcode so contributions come
	// from real voters when possible.
	votersByBarcode := make(map[string][]string, len(barcodes))
	for _, vote := range votes {
		if vote.Identity != "" {
			votersByBarcode[vote.Barcode] = append(votersByBarcode[vote.Barcode], vote.Identity)
		}
	}

	log.Printf("📎 Submitting evidence contributions for %d barcodes...", len(selected))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/contributions"

	var (
		submitted int64
		awarded   int64
	)

	for _, barcode := range selected {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		voters := votersByBarcode[barcode]
		identity := pickIdentity(voters)

		contribution := Contribution{
			Barcode:     barcode,
			Identity:    identity,
			EvidenceRef: "photo_" + barcode,
		}

		resp, err := client.Post(url, contribution)
		if err != nil {
			if config.Verbose {
				log.Printf("⚠️  Contribution for %s failed: %v", barcode, err)
			}
			continue
		}
		body, err := readResponseBody(resp)
		if err != nil {
			continue
		}
		atomic.AddInt64(&submitted, 1)

		if resp.StatusCode == StatusOK {
			var result struct {
				BountyAwarded bool `json:"bounty_awarded"`
			}
			if err := unmarshalJSON(body, &result); err == nil && result.BountyAwarded {
				atomic.AddInt64(&awarded, 1)
			}
		}
	}

	stats.ContributionsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.ContributionsAwarded = int(atomic.LoadInt64(&awarded))

	log.Printf(`✅ Contribution submission completed:
   Submitted: %d
   Awarded: %d
`, stats.ContributionsSubmitted, stats.ContributionsAwarded)

	return nil
}
