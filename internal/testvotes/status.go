package testvotes

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// retrieveStatuses retrieves the demand status for all barcodes concurrently.
func retrieveStatuses(ctx context.Context, config *Config, barcodes []string, stats *Stats) ([]StatusView, error) {
	log.Printf("🔎 Retrieving statuses for %d barcodes with %d workers...", len(barcodes), config.Workers)

	client := newHTTPClient(config.Timeout)

	// Results storage
	statuses := make([]StatusView, len(barcodes))
	var (
		retrieved int64
		failed    int64
	)

	// Progress reporting
	var lastReport time.Time
	reportInterval := 1 * time.Second

	// Create worker pool, sending indices instead of IDs
	barcodeChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for index := range barcodeChan {
				select {
				case <-ctx.Done():
					return
				default:
					barcode := barcodes[index]
					status, err := retrieveSingleStatus(client, config.BaseURL, barcode)

					if err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Failed to get status for %s: %v", barcode, err)
						}
					} else {
						statuses[index] = status
						atomic.AddInt64(&retrieved, 1)
					}

					// Progress reporting
					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&retrieved) + atomic.LoadInt64(&failed)
						ret := atomic.LoadInt64(&retrieved)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("📊 Status progress: %d/%d retrieved (success: %d, failed: %d)",
								total, len(barcodes), ret, fail)
						} else {
							log.Printf("\r🔎 Statuses: %d/%d retrieved (success: %d, failed: %d)",
								total, len(barcodes), ret, fail)
						}
					}
				}
			}
		}()
	}

	// Send barcode indices to workers
	go func() {
		defer close(barcodeChan)
		for i := range barcodes {
			select {
			case <-ctx.Done():
				return
			case barcodeChan <- i:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Final progress report
	if !config.Verbose {
		log.Println() // New line after progress indicator
	}

	// Filter out empty entries (failed retrievals) and barcodes that
	// never received a vote.
	validStatuses := make([]StatusView, 0, len(statuses))
	for _, status := range statuses {
		if status.Barcode != "" && status.Exists {
			validStatuses = append(validStatuses, status)
		}
	}

	// Update stats
	stats.StatusesRetrieved = len(validStatuses)

	log.Printf(`✅ Status retrieval completed:
   Retrieved: %d
   Failed: %d
`, len(validStatuses), int(atomic.LoadInt64(&failed)))

	return validStatuses, nil
}

// retrieveSingleStatus retrieves the status of a single barcode.
func retrieveSingleStatus(client *HTTPClient, baseURL, barcode string) (StatusView, error) {
	url := fmt.Sprintf("%s/votes/%s", baseURL, barcode)

	resp, err := client.Get(url)
	if err != nil {
		return StatusView{}, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return StatusView{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return StatusView{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var status StatusView
	if err := unmarshalJSON(body, &status); err != nil {
		return StatusView{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return status, nil
}

// getLeaderboard retrieves the top N leaderboard entries.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	log.Printf("🥇 Getting top %d leaderboard entries...", config.TopN)

	client := newHTTPClient(config.Timeout)
	url := fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, config.TopN)

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var leaderboard []Entry
	if err := unmarshalJSON(body, &leaderboard); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	stats.LeaderboardEntries = len(leaderboard)
	log.Printf("✅ Retrieved %d leaderboard entries", len(leaderboard))

	return leaderboard, nil
}
