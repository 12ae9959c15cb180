package model

import "time"

// MilestoneKind classifies a demand milestone emitted by ingestion.
type MilestoneKind string

const (
	// MilestoneFunded fires when a record's weighted score crosses the
	// funding threshold from below.
	MilestoneFunded MilestoneKind = "funded"
	// MilestoneTrending fires when a record's 24h scan velocity crosses
	// the trending threshold from below.
	MilestoneTrending MilestoneKind = "trending"
)

// Milestone is the payload flowing through the milestone queue to the
// notification workers.
type Milestone struct {
	Barcode  string
	Kind     MilestoneKind
	Score    int64
	Velocity int
	At       time.Time
}
