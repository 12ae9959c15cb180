// Package weighting defines the vote weight table and funding math.
//
// Weights model decreasing noise as user commitment rises: a search is a
// weak signal, a barcode scan proves possession of the product, and an
// authenticated scan ties that proof to an account.
package weighting

import "github.com/openlabel/demand/internal/domain/model"

// Default weight table and funding policy values.
const (
	defaultSearchWeight     = 1
	defaultScanWeight       = 5
	defaultMemberScanWeight = 20
	defaultBountyWeight     = 10
	defaultFundingThreshold = 500
)

// Weigher resolves the weight of a vote event and the bounty bonus, and
// converts an accumulated score into funding progress.
type Weigher interface {
	// Weight returns the score contribution of a single accepted event
	// of the given type. Unknown types return 0.
	Weight(t model.VoteType) int64

	// BountyWeight returns the one-time evidence bounty bonus.
	BountyWeight() int64

	// FundingThreshold returns the score at which a record is fundable.
	FundingThreshold() int64

	// FundingProgress expresses score as a percentage of the funding
	// threshold. Not capped at 100; consumers decide how to display
	// overfunded records.
	FundingProgress(score int64) float64
}

// Table implements Weigher with a configurable weight table.
type Table struct {
	weights   map[model.VoteType]int64
	bounty    int64
	threshold int64
}

// Option applies a configuration option to the Table.
type Option func(*Table)

// WithVoteWeights overrides weight table entries. Non-positive weights
// and unknown vote types are ignored.
func WithVoteWeights(weights map[string]int64) Option {
	return func(t *Table) {
		for name, w := range weights {
			vt := model.VoteType(name)
			if vt.Valid() && w > 0 {
				t.weights[vt] = w
			}
		}
	}
}

// WithBountyWeight sets the evidence bounty bonus.
func WithBountyWeight(w int64) Option {
	return func(t *Table) {
		if w > 0 {
			t.bounty = w
		}
	}
}

// WithFundingThreshold sets the fundable score threshold.
func WithFundingThreshold(threshold int64) Option {
	return func(t *Table) {
		if threshold > 0 {
			t.threshold = threshold
		}
	}
}

// NewTable creates a weight table with the default policy values.
func NewTable(opts ...Option) *Table {
	t := &Table{
		weights: map[model.VoteType]int64{
			model.VoteSearch:     defaultSearchWeight,
			model.VoteScan:       defaultScanWeight,
			model.VoteMemberScan: defaultMemberScanWeight,
		},
		bounty:    defaultBountyWeight,
		threshold: defaultFundingThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Weight returns the score contribution of one accepted event.
func (t *Table) Weight(vt model.VoteType) int64 {
	return t.weights[vt]
}

// BountyWeight returns the one-time evidence bounty bonus.
func (t *Table) BountyWeight() int64 {
	return t.bounty
}

// FundingThreshold returns the fundable score threshold.
func (t *Table) FundingThreshold() int64 {
	return t.threshold
}

// FundingProgress expresses score as a percentage of the threshold.
func (t *Table) FundingProgress(score int64) float64 {
	if t.threshold <= 0 {
		return 0
	}
	return float64(score) / float64(t.threshold) * 100
}
