// Package repository defines the vote ledger store interface and errors.
package repository

// Option applies a configuration option to the LedgerStore.
type Option func(*LedgerStore)

// WithShardCount sets the number of hash shards holding records.
func WithShardCount(count int) Option {
	return func(s *LedgerStore) {
		if count > 0 {
			s.shardCount = count
		}
	}
}
