// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	milestonequeue "github.com/openlabel/demand/internal/adapters/mq/queue"
	workerpool "github.com/openlabel/demand/internal/adapters/mq/worker"
	"github.com/openlabel/demand/internal/adapters/repository"
	"github.com/openlabel/demand/internal/domain/bounty"
	"github.com/openlabel/demand/internal/domain/dedupe"
	"github.com/openlabel/demand/internal/domain/model"
	"github.com/openlabel/demand/internal/domain/types"
	"github.com/openlabel/demand/internal/domain/velocity"
	"github.com/openlabel/demand/internal/domain/weighting"
	"github.com/openlabel/demand/pkg/logger"
	"github.com/openlabel/demand/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWorkerCount       = 4
	defaultQueueSize         = 10000
	defaultDedupeSize        = 50000
	defaultTrendingThreshold = 10
	defaultLeaderboardLimit  = 10
	maxLeaderboardLimit      = 50

	// maxConflictRetries bounds transparent retries of optimistic ledger
	// conflicts before the failure surfaces to the caller as transient.
	maxConflictRetries = 3
)

// Dedupe key namespaces: vote event IDs and evidence references share
// one deduper but must never collide with each other.
const (
	voteKeyPrefix     = "vote:"
	evidenceKeyPrefix = "evidence:"
)

// VoteInput carries one vote event into ingestion. Identity and EventID
// are optional; Product fields merge non-destructively into the record.
type VoteInput struct {
	Barcode  string
	VoteType string
	Identity string
	EventID  string
	Product  model.ProductInfo
}

// ContributionInput carries one evidence contribution.
type ContributionInput struct {
	Barcode     string
	Identity    string
	EvidenceRef string
}

// Service implements the demand engine operations behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	ledger   repository.Store
	deduper  dedupe.Deduper
	queue    milestonequeue.Queue
	weigher  weighting.Weigher
	window   *velocity.Window
	notifier workerpool.Notifier
	pool     *workerpool.Pool

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	shardCount        int
	voteWeights       map[string]int64
	bountyWeight      int64
	fundingThreshold  int64
	trendingThreshold int
	velocityWindow    time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built ledger store, replacing the default
// in-memory one. Used by tests and alternative deployments.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.ledger = store
		}
	}
}

// WithWorkerCount sets the number of milestone notification workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the milestone queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the ledger shard count.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithVoteWeights overrides weight table entries by vote type name.
func WithVoteWeights(weights map[string]int64) Option {
	return func(s *Service) {
		s.voteWeights = weights
	}
}

// WithBountyWeight sets the evidence bounty bonus weight.
func WithBountyWeight(w int64) Option {
	return func(s *Service) {
		if w > 0 {
			s.bountyWeight = w
		}
	}
}

// WithFundingThreshold sets the fundable score threshold.
func WithFundingThreshold(threshold int64) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.fundingThreshold = threshold
		}
	}
}

// WithTrendingThreshold sets the scans-per-window count at which a
// record is considered trending.
func WithTrendingThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.trendingThreshold = threshold
		}
	}
}

// WithVelocityWindow overrides the trailing scan-velocity window.
func WithVelocityWindow(span time.Duration) Option {
	return func(s *Service) {
		if span > 0 {
			s.velocityWindow = span
		}
	}
}

// WithNotifier injects the milestone consumer. Defaults to a logging
// notifier when unset.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       defaultWorkerCount,
		queueSize:         defaultQueueSize,
		dedupeSize:        defaultDedupeSize,
		trendingThreshold: defaultTrendingThreshold,
		velocityWindow:    velocity.DefaultWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting demand engine...")

	if s.ledger == nil {
		var storeOpts []repository.Option
		if s.shardCount > 0 {
			storeOpts = append(storeOpts, repository.WithShardCount(s.shardCount))
		}
		s.ledger = repository.NewLedgerStore(ctx, storeOpts...)
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = milestonequeue.NewInMemoryQueue(
		milestonequeue.WithCapacity(s.queueSize),
	)

	weighOpts := []weighting.Option{
		weighting.WithVoteWeights(s.voteWeights),
	}
	if s.bountyWeight > 0 {
		weighOpts = append(weighOpts, weighting.WithBountyWeight(s.bountyWeight))
	}
	if s.fundingThreshold > 0 {
		weighOpts = append(weighOpts, weighting.WithFundingThreshold(s.fundingThreshold))
	}
	s.weigher = weighting.NewTable(weighOpts...)
	s.window = velocity.NewWindow(velocity.WithSpan(s.velocityWindow))

	if s.notifier == nil {
		s.notifier = newLoggingNotifier(s.logger)
	}
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.notifier)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "demand engine started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int64("fundingThreshold", s.weigher.FundingThreshold()),
	)
	return nil
}

// Stop gracefully shuts down the service, draining in-flight milestones.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping demand engine...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "milestone pool shutdown incomplete", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "demand engine stopped")
}

// CastVote validates and applies one vote event and returns the updated
// demand state for the barcode.
func (s *Service) CastVote(ctx context.Context, in VoteInput) (types.VoteReceipt, error) {
	if in.Barcode == "" {
		return types.VoteReceipt{}, validationError(ReasonBarcodeRequired, "Barcode is required")
	}
	vt := model.VoteType(in.VoteType)
	if !vt.Valid() {
		return types.VoteReceipt{}, validationError(ReasonInvalidVoteType, "Invalid vote type")
	}

	if in.EventID != "" && s.SeenAndRecord(ctx, voteKeyPrefix+in.EventID) {
		return s.duplicateReceipt(ctx, in)
	}

	weight := s.weigher.Weight(vt)
	threshold := s.weigher.FundingThreshold()
	now := time.Now()

	// Captured by the mutate closure; reset on every retry since an
	// optimistic store may run the closure more than once.
	var (
		oldScore, newScore int64
		oldVelocity        int
		scansAfter         int
		yourVoteRank       int64
		totalVotes         int64
		product            model.ProductInfo
	)

	mutate := func(r *model.VoteRecord) error {
		oldScore = r.WeightedScore

		r.TotalVotes++
		switch {
		case in.Identity == "":
			// Anonymous events always add weight; no dedup is possible
			// without an identity token.
			r.WeightedScore += weight
		case r.AddVoter(in.Identity):
			r.WeightedScore += weight
			r.VoterWeight[in.Identity] += weight
		}
		if in.Identity != "" {
			r.VoterVotes[in.Identity]++
			yourVoteRank = r.VoterVotes[in.Identity]
		} else {
			yourVoteRank = r.TotalVotes
		}

		oldVelocity = s.window.Count(r.ScanTimes, now)
		if vt.ScanClass() {
			r.ScanTimes, r.ScansLast24h = s.window.Observe(r.ScanTimes, now)
		}
		scansAfter = s.window.Count(r.ScanTimes, now)

		r.Product.Merge(in.Product)
		r.UpdatedAt = now

		newScore = r.WeightedScore
		totalVotes = r.TotalVotes
		product = r.Product
		return nil
	}

	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if _, err = s.ledger.Upsert(ctx, in.Barcode, mutate); !errors.Is(err, repository.ErrConflict) {
			break
		}
	}
	if err != nil {
		if in.EventID != "" {
			s.Unrecord(ctx, voteKeyPrefix+in.EventID)
		}
		if errors.Is(err, repository.ErrConflict) {
			return types.VoteReceipt{}, transientError(ReasonConflict, "Vote could not be applied, please retry")
		}
		return types.VoteReceipt{}, err
	}

	metrics.RecordVote(in.VoteType)
	s.emitMilestones(ctx, in.Barcode, oldScore, newScore, threshold, oldVelocity, scansAfter, now)

	rank, _ := s.ledger.Rank(ctx, in.Barcode)
	return types.VoteReceipt{
		Barcode:         in.Barcode,
		TotalVotes:      totalVotes,
		WeightedScore:   newScore,
		YourVoteRank:    yourVoteRank,
		FundingProgress: s.weigher.FundingProgress(newScore),
		Rank:            rank,
		Product:         productView(product),
	}, nil
}

// duplicateReceipt acknowledges a replayed vote event without mutating
// the ledger.
func (s *Service) duplicateReceipt(ctx context.Context, in VoteInput) (types.VoteReceipt, error) {
	metrics.RecordVoteDuplicate()
	s.logger.Debug(ctx, "duplicate vote event",
		logger.String("barcode", in.Barcode),
		logger.String("eventID", in.EventID),
	)

	receipt := types.VoteReceipt{Barcode: in.Barcode, Duplicate: true}
	rec, err := s.ledger.Get(ctx, in.Barcode)
	if err != nil {
		return receipt, nil
	}
	receipt.TotalVotes = rec.TotalVotes
	receipt.WeightedScore = rec.WeightedScore
	receipt.FundingProgress = s.weigher.FundingProgress(rec.WeightedScore)
	receipt.Product = productView(rec.Product)
	if in.Identity != "" {
		receipt.YourVoteRank = rec.VoterVotes[in.Identity]
	} else {
		receipt.YourVoteRank = rec.TotalVotes
	}
	if rank, err := s.ledger.Rank(ctx, in.Barcode); err == nil {
		receipt.Rank = rank
	}
	return receipt, nil
}

// emitMilestones enqueues funded/trending milestones when the update
// crossed a threshold from below. Enqueue never blocks; a full queue
// drops the milestone and counts it.
func (s *Service) emitMilestones(ctx context.Context, barcode string, oldScore, newScore, threshold int64, oldVelocity, newVelocity int, at time.Time) {
	if oldScore < threshold && newScore >= threshold {
		s.emit(ctx, model.Milestone{
			Barcode: barcode,
			Kind:    model.MilestoneFunded,
			Score:   newScore,
			At:      at,
		})
	}
	if s.trendingThreshold > 0 && oldVelocity < s.trendingThreshold && newVelocity >= s.trendingThreshold {
		s.emit(ctx, model.Milestone{
			Barcode:  barcode,
			Kind:     model.MilestoneTrending,
			Score:    newScore,
			Velocity: newVelocity,
			At:       at,
		})
	}
}

func (s *Service) emit(ctx context.Context, m model.Milestone) {
	if s.queue == nil {
		return
	}
	if !s.queue.Enqueue(ctx, m) {
		metrics.RecordMilestoneDropped()
		s.logger.Warn(ctx, "milestone dropped under backpressure",
			logger.String("barcode", m.Barcode),
			logger.String("kind", string(m.Kind)),
		)
		return
	}
	metrics.RecordMilestone(string(m.Kind))
}

// Contribute evaluates an evidence contribution against the bounty rules.
func (s *Service) Contribute(ctx context.Context, in ContributionInput) (types.ContributionResult, error) {
	if in.Barcode == "" {
		return types.ContributionResult{}, validationError(ReasonBarcodeRequired, "Barcode is required")
	}
	if in.Identity == "" {
		return types.ContributionResult{}, validationError(ReasonIdentityRequired, "Identity is required")
	}
	if in.EvidenceRef == "" {
		return types.ContributionResult{}, validationError(ReasonEvidenceRequired, "Evidence reference is required")
	}

	if s.SeenAndRecord(ctx, evidenceKeyPrefix+in.EvidenceRef) {
		metrics.RecordVoteDuplicate()
		return types.ContributionResult{
			Barcode: in.Barcode,
			Outcome: string(bounty.OutcomeAlreadyContributed),
			Message: "This evidence reference has already been processed",
		}, nil
	}

	bonus := s.weigher.BountyWeight()
	threshold := s.weigher.FundingThreshold()
	now := time.Now()

	var (
		outcome            bounty.Outcome
		oldScore, newScore int64
	)
	mutate := func(r *model.VoteRecord) error {
		oldScore = r.WeightedScore
		outcome = bounty.Claim(r, in.Identity, in.EvidenceRef, bonus, now)
		newScore = r.WeightedScore
		return nil
	}

	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if _, err = s.ledger.Update(ctx, in.Barcode, mutate); !errors.Is(err, repository.ErrConflict) {
			break
		}
	}
	if err != nil {
		s.Unrecord(ctx, evidenceKeyPrefix+in.EvidenceRef)
		if errors.Is(err, repository.ErrNotFound) {
			return types.ContributionResult{}, notFoundError(ReasonBarcodeNotFound, "Barcode not found")
		}
		if errors.Is(err, repository.ErrConflict) {
			return types.ContributionResult{}, transientError(ReasonConflict, "Contribution could not be applied, please retry")
		}
		return types.ContributionResult{}, err
	}

	metrics.RecordBounty(string(outcome))
	if outcome == bounty.OutcomeAwarded {
		s.emitMilestones(ctx, in.Barcode, oldScore, newScore, threshold, 0, 0, now)
	}

	result := types.ContributionResult{
		Barcode:       in.Barcode,
		Outcome:       string(outcome),
		WeightedScore: newScore,
	}
	switch outcome {
	case bounty.OutcomeAwarded:
		result.BountyAwarded = true
		result.BonusWeight = bonus
		result.Message = "Bounty awarded for contributing evidence"
	case bounty.OutcomeAlreadyContributed:
		result.Message = "You have already contributed evidence for this product"
	case bounty.OutcomeNotEligible:
		result.Message = "The original voter cannot claim the evidence bounty"
	}
	return result, nil
}

// Status reports the demand state of one barcode. A never-voted barcode
// is an exists=false response, not an error.
func (s *Service) Status(ctx context.Context, barcode string) (types.StatusView, error) {
	if barcode == "" {
		return types.StatusView{}, validationError(ReasonBarcodeRequired, "Barcode is required")
	}

	rec, err := s.ledger.Get(ctx, barcode)
	if errors.Is(err, repository.ErrNotFound) {
		return types.StatusView{Barcode: barcode}, nil
	}
	if err != nil {
		return types.StatusView{}, err
	}

	rank, _ := s.ledger.Rank(ctx, barcode)
	return types.StatusView{
		Barcode:         barcode,
		Exists:          true,
		TotalVotes:      rec.TotalVotes,
		WeightedScore:   rec.WeightedScore,
		Status:          string(rec.Status),
		Rank:            rank,
		FundingProgress: s.weigher.FundingProgress(rec.WeightedScore),
		// Live recount; the stored counter is a write-time cache.
		ScansLast24h: s.window.Count(rec.ScanTimes, time.Now()),
	}, nil
}

// Leaderboard returns the top records by weighted score. The limit is
// hard-capped regardless of what the caller requests.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	start := time.Now()
	records, err := s.ledger.TopN(ctx, limit)
	metrics.RecordLedgerQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, err
	}

	entries := make([]types.Entry, len(records))
	for i, rec := range records {
		entries[i] = types.Entry{
			Rank:          i + 1,
			Barcode:       rec.Barcode,
			WeightedScore: rec.WeightedScore,
			TotalVotes:    rec.TotalVotes,
			ProductName:   rec.Product.Name,
			Status:        string(rec.Status),
		}
	}
	return entries, nil
}

// QueuePage returns one page of the funding queue. An empty filter
// defaults to most_voted.
func (s *Service) QueuePage(ctx context.Context, page, limit int, filter string) (types.QueuePage, error) {
	sort := repository.SortMostVoted
	if filter != "" {
		sort = repository.PageSort(filter)
		if !sort.Valid() {
			return types.QueuePage{}, validationError(ReasonInvalidFilter, "Invalid queue filter")
		}
	}

	start := time.Now()
	result, err := s.ledger.Page(ctx, repository.PageQuery{
		Sort:             sort,
		Page:             page,
		Limit:            limit,
		FundingThreshold: s.weigher.FundingThreshold(),
	})
	metrics.RecordLedgerQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return types.QueuePage{}, err
	}

	now := time.Now()
	items := make([]types.QueueItem, len(result.Records))
	for i, rec := range result.Records {
		items[i] = types.QueueItem{
			Barcode:         rec.Barcode,
			WeightedScore:   rec.WeightedScore,
			TotalVotes:      rec.TotalVotes,
			FundingProgress: s.weigher.FundingProgress(rec.WeightedScore),
			ScansLast24h:    s.window.Count(rec.ScanTimes, now),
			ProductName:     rec.Product.Name,
			Status:          string(rec.Status),
		}
	}
	return types.QueuePage{
		Items:      items,
		Page:       result.Page,
		TotalPages: result.TotalPages,
		Total:      result.Total,
	}, nil
}

// Investigations lists every record the identity has voted on,
// annotated with that identity's contribution. An unknown identity
// yields an empty list.
func (s *Service) Investigations(ctx context.Context, identity string) ([]types.Investigation, error) {
	if identity == "" {
		return nil, validationError(ReasonIdentityRequired, "Identity is required")
	}

	records, err := s.ledger.ByVoter(ctx, identity)
	if err != nil {
		return nil, err
	}

	out := make([]types.Investigation, len(records))
	for i, rec := range records {
		rank, _ := s.ledger.Rank(ctx, rec.Barcode)
		out[i] = types.Investigation{
			Barcode:         rec.Barcode,
			WeightedScore:   rec.WeightedScore,
			TotalVotes:      rec.TotalVotes,
			Status:          string(rec.Status),
			FundingProgress: s.weigher.FundingProgress(rec.WeightedScore),
			Rank:            rank,
			YourVotes:       rec.VoterVotes[identity],
			YourWeight:      rec.VoterWeight[identity],
			BountyClaimed:   rec.BountyClaimed(identity),
		}
	}
	return out, nil
}

// SetStatus transitions the lifecycle status of a record on behalf of
// the external moderation/funding workflow.
func (s *Service) SetStatus(ctx context.Context, barcode, status string) error {
	if barcode == "" {
		return validationError(ReasonBarcodeRequired, "Barcode is required")
	}
	st := model.Status(status)
	if !st.Valid() {
		return validationError(ReasonInvalidStatus, "Invalid status")
	}
	if err := s.ledger.SetStatus(ctx, barcode, st); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundError(ReasonBarcodeNotFound, "Barcode not found")
		}
		return err
	}
	return nil
}

// SeenAndRecord atomically checks whether an idempotency key was seen
// and records it if not. Returns true when the key was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes an idempotency key, allowing the event to be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of tracked idempotency keys.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueCapacity": s.queueSize,
		"dedupeSize":    s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		totalRecords := s.ledger.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalRecords"] = totalRecords
		stats["fundingThreshold"] = s.weigher.FundingThreshold()
		stats["trackedKeys"] = s.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateLedgerSize(totalRecords)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}

func productView(p model.ProductInfo) types.ProductInfo {
	return types.ProductInfo{
		Name:     p.Name,
		Brand:    p.Brand,
		ImageURL: p.ImageURL,
	}
}
