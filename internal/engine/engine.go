package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/pravoguard/contentguard/internal/blocklist"
	"github.com/pravoguard/contentguard/internal/config"
	"github.com/pravoguard/contentguard/internal/database"
	"github.com/pravoguard/contentguard/internal/fingerprint"
	"github.com/pravoguard/contentguard/internal/similarity"
	"github.com/pravoguard/contentguard/internal/taxonomy"
)

// Engine is the validation gateway: the single entry point producers call
// before publishing. It is an explicit service object constructed once at
// startup and shared by reference; there is no process-wide singleton.
type Engine struct {
	db           *database.DB
	extractor    *fingerprint.Extractor
	classifier   *similarity.Classifier
	blocklist    *blocklist.Manager
	policy       Policy
	defaultBlock time.Duration
	retention    int
	metrics      Metrics
}

// Stats is the engine's aggregate view for operators.
type Stats struct {
	TotalFingerprints   int
	ByProducer          map[string]int
	PermanentlyBlocked  int
	TemporarilyBlocked  int
	LastActivity        *string
	SimilarityThreshold float64
	Counters            Counters
}

// CleanupResult reports what a retention pass removed.
type CleanupResult struct {
	DeletedFingerprints int64
	DeletedBlocks       int64
}

// New builds an engine from configuration and an open store, loading the
// taxonomy from cfg or the embedded default.
func New(cfg *config.Config, db *database.DB) (*Engine, error) {
	tax, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}
	return NewWithTaxonomy(cfg, db, tax), nil
}

// NewWithTaxonomy builds an engine with an already-loaded taxonomy.
func NewWithTaxonomy(cfg *config.Config, db *database.DB, tax *taxonomy.Taxonomy) *Engine {
	e := cfg.Engine
	return &Engine{
		db:           db,
		extractor:    fingerprint.NewExtractor(tax),
		classifier:   similarity.NewClassifier(db, e.SimilarityThreshold, e.WindowDays, e.WindowRows),
		blocklist:    blocklist.NewManager(db),
		policy:       ParsePolicy(e.OnStoreError),
		defaultBlock: time.Duration(e.DefaultBlockHours) * time.Hour,
		retention:    e.RetentionDays,
	}
}

// ValidateAndRegister checks a candidate post for duplication and, when
// unique, records its fingerprint. Rejections carry a human-readable reason.
//
// The exact-duplicate path is atomic: byte-identical candidates racing from
// two producers resolve through the store's unique constraint, and at most
// one wins. The fuzzy path is read-then-write and deliberately not atomic:
// two near-duplicate candidates racing can both pass. That window is a
// documented trade-off, not a bug; tighten it only by wrapping classify and
// insert in one serializable transaction.
func (e *Engine) ValidateAndRegister(title, body, contentType, producerID string) (bool, string) {
	e.metrics.incChecks()
	fp := e.extractor.Extract(title, body, contentType)

	match, err := e.classify(fp, producerID)
	if err != nil {
		return e.storeFailure("classify", err)
	}
	if match.IsDuplicate {
		e.countRejection(match)
		return false, match.Reason
	}

	id, err := e.db.InsertFingerprint(&database.Fingerprint{
		TitleHash:      fp.TitleHash,
		BodyHash:       fp.BodyHash,
		FullTextHash:   fp.FullTextHash,
		TopicKeywords:  fp.TopicKeywords,
		SemanticTokens: fp.SemanticTokens,
		LegalRefs:      fp.LegalRefs,
		ContentType:    contentType,
		ProducerID:     producerID,
	})
	if err != nil {
		return e.storeFailure("register", err)
	}
	if id == 0 {
		// Unique-constraint race: an identical post was registered between
		// the classify read and this write. Treated as an ordinary rejection.
		e.metrics.incExactRejections()
		return false, "exact duplicate registered concurrently by another producer"
	}

	e.metrics.incAccepted()
	return true, "registered"
}

// CheckUniqueness runs extraction and classification without writing
// anything. Producers use it to probe a cheap title/topic draft before
// spending a generation call on full body text.
func (e *Engine) CheckUniqueness(title, body, contentType, producerID string) (bool, string, float64) {
	e.metrics.incChecks()
	fp := e.extractor.Extract(title, body, contentType)

	match, err := e.classify(fp, producerID)
	if err != nil {
		ok, msg := e.storeFailure("check", err)
		return ok, msg, 0
	}
	if match.IsDuplicate {
		e.countRejection(match)
		return false, match.Reason, match.Score
	}
	return true, "", 0
}

// classify applies the store-error policy around the classifier.
func (e *Engine) classify(fp fingerprint.Fingerprint, producerID string) (similarity.Match, error) {
	if e.policy != PolicyRetry {
		return e.classifier.Classify(fp, producerID)
	}
	var match similarity.Match
	err := withRetry(storeRetryAttempts, storeRetryDelay, func() error {
		var err error
		match, err = e.classifier.Classify(fp, producerID)
		return err
	})
	return match, err
}

// storeFailure resolves a store error into an accept/reject decision
// according to the configured policy. Fail-open keeps the business
// publishing through a storage outage at the cost of unproven uniqueness.
func (e *Engine) storeFailure(op string, err error) (bool, string) {
	e.metrics.incStoreErrors()
	log.Printf("store error during %s: %v", op, err)

	if e.policy == PolicyFailClosed {
		return false, fmt.Sprintf("storage unavailable, rejecting candidate: %v", err)
	}
	// PolicyRetry has already exhausted its attempts by the time we get
	// here; it degrades to fail-open.
	return true, "accepted without uniqueness check: storage unavailable"
}

func (e *Engine) countRejection(match similarity.Match) {
	switch {
	case match.Exact:
		e.metrics.incExactRejections()
	case match.TopicBlocked:
		e.metrics.incTopicRejections()
	default:
		e.metrics.incFuzzyRejections()
	}
}

// BlockTopicTemporarily suppresses a topic for the given number of hours.
// Zero hours applies the configured default cooldown.
func (e *Engine) BlockTopicTemporarily(topic, reason string, hours int) error {
	d := time.Duration(hours) * time.Hour
	if hours <= 0 {
		d = e.defaultBlock
	}
	return e.blocklist.BlockTemporary(topic, reason, d)
}

// BlockTopicPermanently suppresses a topic with no expiry.
func (e *Engine) BlockTopicPermanently(topic, reason string) error {
	return e.blocklist.BlockPermanent(topic, reason)
}

// UnblockTopic removes a block, reporting whether one existed.
func (e *Engine) UnblockTopic(topic string) (bool, error) {
	return e.blocklist.Unblock(topic)
}

// ListBlockedTopics returns all currently-active blocks.
func (e *Engine) ListBlockedTopics() ([]database.BlockedTopic, error) {
	return e.blocklist.ListBlocked()
}

// Blocklist exposes the underlying manager for callers that need the
// lower-level operations (the producer loop, tests).
func (e *Engine) Blocklist() *blocklist.Manager {
	return e.blocklist
}

// Statistics returns the engine's aggregate state.
func (e *Engine) Statistics() (*Stats, error) {
	total, err := e.db.CountFingerprints()
	if err != nil {
		return nil, fmt.Errorf("counting fingerprints: %w", err)
	}
	byProducer, err := e.db.CountByProducer()
	if err != nil {
		return nil, fmt.Errorf("counting by producer: %w", err)
	}
	permanent, temporary, err := e.db.CountBlockedTopics(time.Now())
	if err != nil {
		return nil, fmt.Errorf("counting blocked topics: %w", err)
	}
	last, err := e.db.LastActivity()
	if err != nil {
		return nil, fmt.Errorf("reading last activity: %w", err)
	}
	return &Stats{
		TotalFingerprints:   total,
		ByProducer:          byProducer,
		PermanentlyBlocked:  permanent,
		TemporarilyBlocked:  temporary,
		LastActivity:        last,
		SimilarityThreshold: e.classifier.Threshold(),
		Counters:            e.metrics.Snapshot(),
	}, nil
}

// Cleanup deletes fingerprints older than retentionDays and all expired
// temporary blocks. Zero retentionDays applies the configured default.
func (e *Engine) Cleanup(retentionDays int) (*CleanupResult, error) {
	if retentionDays <= 0 {
		retentionDays = e.retention
	}
	now := time.Now()
	cutoff := now.AddDate(0, 0, -retentionDays)

	deletedFPs, err := e.db.DeleteFingerprintsBefore(cutoff)
	if err != nil {
		return nil, fmt.Errorf("deleting old fingerprints: %w", err)
	}
	deletedBlocks, err := e.db.DeleteExpiredBlocks(now)
	if err != nil {
		return nil, fmt.Errorf("deleting expired blocks: %w", err)
	}
	return &CleanupResult{
		DeletedFingerprints: deletedFPs,
		DeletedBlocks:       deletedBlocks,
	}, nil
}
