// Package model contains domain models passed between layers.
package model

import "time"

// VoteType classifies an incoming demand signal by confidence class.
type VoteType string

// Supported vote types, ordered by increasing signal confidence.
const (
	VoteSearch     VoteType = "search"
	VoteScan       VoteType = "scan"
	VoteMemberScan VoteType = "member_scan"
)

// Valid reports whether t is a recognized vote type.
func (t VoteType) Valid() bool {
	switch t {
	case VoteSearch, VoteScan, VoteMemberScan:
		return true
	}
	return false
}

// ScanClass reports whether t feeds the velocity window.
// Search events never touch velocity state.
func (t VoteType) ScanClass() bool {
	return t == VoteScan || t == VoteMemberScan
}

// Status is the lifecycle state of a VoteRecord. Transitions are driven
// by the external moderation/funding workflow; the core only reads it.
type Status string

const (
	StatusVoting    Status = "voting"
	StatusQueued    Status = "queued"
	StatusFunded    Status = "funded"
	StatusTesting   Status = "testing"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a recognized lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusVoting, StatusQueued, StatusFunded, StatusTesting, StatusCompleted:
		return true
	}
	return false
}

// ProductInfo is optional denormalized metadata attached to a record.
type ProductInfo struct {
	Name     string
	Brand    string
	ImageURL string
}

// Merge fills empty fields of p from in. Populated fields are never
// overwritten, so stale clients cannot blank out prior metadata.
func (p *ProductInfo) Merge(in ProductInfo) {
	if p.Name == "" {
		p.Name = in.Name
	}
	if p.Brand == "" {
		p.Brand = in.Brand
	}
	if p.ImageURL == "" {
		p.ImageURL = in.ImageURL
	}
}

// Empty reports whether no metadata field is populated.
func (p ProductInfo) Empty() bool {
	return p.Name == "" && p.Brand == "" && p.ImageURL == ""
}

// BountyClaim records a paid-out evidence bounty on a record.
type BountyClaim struct {
	Identity    string
	EvidenceRef string
	ClaimedAt   time.Time
}

// VoteRecord is the per-barcode demand accumulator. One record exists per
// distinct barcode; it is created lazily on the first vote event and never
// hard-deleted by the core.
type VoteRecord struct {
	Barcode string

	// TotalVotes counts every accepted vote event, including repeat
	// events from an identity already in the voter set.
	TotalVotes int64

	// WeightedScore is an accumulator: the sum of per-accepted-event
	// weights plus bounty bonuses. It must never be recomputed by
	// re-summing derived counters.
	WeightedScore int64

	// Voters preserves insertion order; Voters[0] is the original
	// voter of record used for bounty eligibility.
	Voters []string

	// VoterVotes counts vote events per identity, backing the
	// per-identity vote rank returned to callers. VoterWeight holds the
	// weight each identity has contributed to the accumulator.
	VoterVotes  map[string]int64
	VoterWeight map[string]int64

	// ScanTimes holds scan-class event timestamps inside the retention
	// window. ScansLast24h is a write-time cache of len(ScanTimes);
	// read paths needing a live value recount from ScanTimes.
	ScanTimes    []time.Time
	ScansLast24h int

	Product  ProductInfo
	Bounties []BountyClaim
	Status   Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewVoteRecord returns an empty record for barcode in the initial
// lifecycle state.
func NewVoteRecord(barcode string, now time.Time) *VoteRecord {
	return &VoteRecord{
		Barcode:     barcode,
		VoterVotes:  make(map[string]int64),
		VoterWeight: make(map[string]int64),
		Status:      StatusVoting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasVoter reports whether identity has already cast a scoring vote.
func (r *VoteRecord) HasVoter(identity string) bool {
	_, ok := r.VoterVotes[identity]
	return ok
}

// AddVoter appends identity to the voter set if novel and returns true
// when the identity was newly recorded.
func (r *VoteRecord) AddVoter(identity string) bool {
	if identity == "" || r.HasVoter(identity) {
		return false
	}
	r.Voters = append(r.Voters, identity)
	r.VoterVotes[identity] = 0
	return true
}

// OriginalVoter returns the first voter of record, or "" when every vote
// so far has been anonymous.
func (r *VoteRecord) OriginalVoter() string {
	if len(r.Voters) == 0 {
		return ""
	}
	return r.Voters[0]
}

// BountyClaimed reports whether identity has already claimed the evidence
// bounty on this record.
func (r *VoteRecord) BountyClaimed(identity string) bool {
	for _, c := range r.Bounties {
		if c.Identity == identity {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out across the store boundary.
func (r *VoteRecord) Clone() *VoteRecord {
	cp := *r
	cp.Voters = append([]string(nil), r.Voters...)
	cp.ScanTimes = append([]time.Time(nil), r.ScanTimes...)
	cp.Bounties = append([]BountyClaim(nil), r.Bounties...)
	cp.VoterVotes = make(map[string]int64, len(r.VoterVotes))
	for id, n := range r.VoterVotes {
		cp.VoterVotes[id] = n
	}
	cp.VoterWeight = make(map[string]int64, len(r.VoterWeight))
	for id, w := range r.VoterWeight {
		cp.VoterWeight[id] = w
	}
	return &cp
}
