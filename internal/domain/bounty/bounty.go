// Package bounty evaluates evidence-contribution bounty claims.
//
// The bounty is one-per-barcode-per-distinct-contributor: several
// identities may each earn it for the same barcode, but the original
// voter of record can never claim the bounty on their own investigation.
package bounty

import (
	"time"

	"github.com/openlabel/demand/internal/domain/model"
)

// Outcome classifies the result of a bounty evaluation. Each outcome is
// surfaced distinctly so clients can branch on the reason.
type Outcome string

const (
	// OutcomeAwarded means the claim was accepted and the bonus applied.
	OutcomeAwarded Outcome = "awarded"
	// OutcomeAlreadyContributed means this identity already claimed the
	// bounty on this barcode.
	OutcomeAlreadyContributed Outcome = "already_contributed"
	// OutcomeNotEligible means the identity is the original voter of
	// record and is excluded from self-claiming.
	OutcomeNotEligible Outcome = "not_eligible"
)

// Claim applies the anti-self-claim and re-claim rules to rec and, when
// eligible, records the claim and adds bonus to the weighted score.
// rec must be mutated under the ledger's per-barcode serialization.
func Claim(rec *model.VoteRecord, identity, evidenceRef string, bonus int64, now time.Time) Outcome {
	if identity == rec.OriginalVoter() {
		return OutcomeNotEligible
	}
	if rec.BountyClaimed(identity) {
		return OutcomeAlreadyContributed
	}
	rec.Bounties = append(rec.Bounties, model.BountyClaim{
		Identity:    identity,
		EvidenceRef: evidenceRef,
		ClaimedAt:   now,
	})
	rec.WeightedScore += bonus
	rec.UpdatedAt = now
	return OutcomeAwarded
}
