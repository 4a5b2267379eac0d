package engine

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pravoguard/contentguard/internal/config"
	"github.com/pravoguard/contentguard/internal/database"
)

func newTestEngine(t *testing.T) (*Engine, *database.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng, err := New(config.Default(), db)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return eng, db
}

func TestValidateAndRegisterAcceptsFreshContent(t *testing.T) {
	eng, db := newTestEngine(t)

	ok, msg := eng.ValidateAndRegister(
		"Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.",
		"news", "hourly",
	)
	if !ok {
		t.Fatalf("expected acceptance, got rejection: %s", msg)
	}

	n, err := db.CountFingerprints()
	if err != nil {
		t.Fatalf("counting: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 stored fingerprint, got %d", n)
	}
}

func TestValidateAndRegisterRejectsExactRepeat(t *testing.T) {
	eng, db := newTestEngine(t)
	title := "Divorce paperwork basics"
	body := "How to file a claim for divorce and split property fairly."

	if ok, msg := eng.ValidateAndRegister(title, body, "news", "hourly"); !ok {
		t.Fatalf("first registration must pass: %s", msg)
	}
	ok, msg := eng.ValidateAndRegister(title, body, "news", "daily")
	if ok {
		t.Fatal("identical content must be rejected")
	}
	if !strings.Contains(msg, "exact duplicate") {
		t.Errorf("expected exact-duplicate reason, got %q", msg)
	}

	n, _ := db.CountFingerprints()
	if n != 1 {
		t.Errorf("rejection must not add a row, count = %d", n)
	}
}

func TestValidateAndRegisterRejectsNearDuplicate(t *testing.T) {
	eng, _ := newTestEngine(t)

	ok, msg := eng.ValidateAndRegister(
		"Dismissal without cause",
		"Employee fired citing art. 81, plans to seek compensation and go to court over unjust termination",
		"news", "hourly",
	)
	if !ok {
		t.Fatalf("first post must pass: %s", msg)
	}

	// Same subject reworded: shared stems, phrases and the art. 81 citation
	// push the weighted score past the threshold.
	ok, msg = eng.ValidateAndRegister(
		"Unjust termination",
		"Worker dismissed under article 81 will seek compensation and go to court after dismissal without notice",
		"news", "daily",
	)
	if ok {
		t.Fatal("reworded near-duplicate must be rejected")
	}
	if !strings.Contains(msg, "near-duplicate") {
		t.Errorf("expected near-duplicate reason, got %q", msg)
	}
}

func TestValidateAndRegisterAcceptsDistinctTopics(t *testing.T) {
	eng, _ := newTestEngine(t)

	posts := []struct{ title, body string }{
		{"Divorce paperwork basics", "How to file a claim for divorce and split property fairly."},
		{"Eviction notice rights", "What a tenant can do when the landlord serves an eviction notice."},
		{"Tax deduction deadlines", "A taxpayer can claim a deduction until the declaration deadline."},
	}
	for _, p := range posts {
		if ok, msg := eng.ValidateAndRegister(p.title, p.body, "news", "hourly"); !ok {
			t.Errorf("distinct post %q rejected: %s", p.title, msg)
		}
	}
}

func TestValidateAndRegisterRespectsTopicBlock(t *testing.T) {
	eng, _ := newTestEngine(t)

	if err := eng.BlockTopicTemporarily("employee dismissal", "over-published", 4); err != nil {
		t.Fatalf("blocking: %v", err)
	}

	ok, msg := eng.ValidateAndRegister(
		"Dismissal dispute",
		"An employee challenges a dismissal order in district court.",
		"news", "hourly",
	)
	if ok {
		t.Fatal("content on a blocked topic must be rejected")
	}
	if !strings.Contains(msg, "blocked") {
		t.Errorf("expected block reason, got %q", msg)
	}

	counters := eng.metrics.Snapshot()
	if counters.TopicRejections != 1 {
		t.Errorf("expected 1 topic rejection, got %d", counters.TopicRejections)
	}
}

func TestCheckUniquenessDoesNotWrite(t *testing.T) {
	eng, db := newTestEngine(t)

	ok, reason, score := eng.CheckUniqueness(
		"Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.",
		"news", "hourly",
	)
	if !ok || reason != "" || score != 0 {
		t.Errorf("expected clean pass, got ok=%v reason=%q score=%v", ok, reason, score)
	}

	n, _ := db.CountFingerprints()
	if n != 0 {
		t.Errorf("probe must not store anything, count = %d", n)
	}

	// A probe against registered content reports the match without writing.
	eng.ValidateAndRegister("Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.", "news", "hourly")
	ok, reason, score = eng.CheckUniqueness("Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.", "news", "daily")
	if ok {
		t.Fatal("probe must report the duplicate")
	}
	if score != 1.0 {
		t.Errorf("expected exact score 1.0, got %v", score)
	}
	if reason == "" {
		t.Error("expected a rejection reason")
	}

	n, _ = db.CountFingerprints()
	if n != 1 {
		t.Errorf("probe must not add rows, count = %d", n)
	}
}

func TestConcurrentIdenticalRegistration(t *testing.T) {
	eng, db := newTestEngine(t)
	title := "Divorce paperwork basics"
	body := "How to file a claim for divorce and split property fairly."

	const producers = 8
	results := make([]bool, producers)
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, _ := eng.ValidateAndRegister(title, body, "news", "hourly")
			results[i] = ok
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, ok := range results {
		if ok {
			accepted++
		}
	}
	// Byte-identical content is arbitrated by the unique constraint: exactly
	// one producer wins no matter how the goroutines interleave.
	if accepted != 1 {
		t.Errorf("expected exactly 1 acceptance, got %d", accepted)
	}
	n, _ := db.CountFingerprints()
	if n != 1 {
		t.Errorf("expected 1 stored fingerprint, got %d", n)
	}
}

func TestFailOpenOnStoreError(t *testing.T) {
	eng, db := newTestEngine(t)
	db.Close()

	ok, msg := eng.ValidateAndRegister("Divorce paperwork basics",
		"How to file a claim for divorce.", "news", "hourly")
	if !ok {
		t.Fatalf("fail-open policy must accept through an outage, got: %s", msg)
	}
	if !strings.Contains(msg, "without uniqueness check") {
		t.Errorf("expected degraded-acceptance message, got %q", msg)
	}
	if eng.metrics.Snapshot().StoreErrors != 1 {
		t.Error("expected a store error to be counted")
	}
}

func TestFailClosedOnStoreError(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	cfg := config.Default()
	cfg.Engine.OnStoreError = "fail_closed"
	eng, err := New(cfg, db)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	db.Close()

	ok, msg := eng.ValidateAndRegister("Divorce paperwork basics",
		"How to file a claim for divorce.", "news", "hourly")
	if ok {
		t.Fatal("fail-closed policy must reject through an outage")
	}
	if !strings.Contains(msg, "storage unavailable") {
		t.Errorf("expected storage-unavailable reason, got %q", msg)
	}
}

func TestBlockTopicDefaultCooldown(t *testing.T) {
	eng, db := newTestEngine(t)

	// Zero hours means the configured default cooldown, not permanent.
	if err := eng.BlockTopicTemporarily("tax audit", "r", 0); err != nil {
		t.Fatalf("blocking: %v", err)
	}
	bt, err := db.GetBlockedTopic("tax audit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bt == nil || bt.BlockedUntil == nil {
		t.Fatalf("expected a temporary block, got %+v", bt)
	}
}

func TestUnblockTopic(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.BlockTopicPermanently("tax audit", "r")

	existed, err := eng.UnblockTopic("tax audit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !existed {
		t.Error("expected unblock to report an existing block")
	}

	topics, err := eng.ListBlockedTopics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(topics) != 0 {
		t.Errorf("expected empty blocklist, got %d entries", len(topics))
	}
}

func TestStatistics(t *testing.T) {
	eng, _ := newTestEngine(t)

	eng.ValidateAndRegister("Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.", "news", "hourly")
	eng.ValidateAndRegister("Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.", "news", "daily")
	eng.BlockTopicPermanently("tax audit", "r")
	eng.BlockTopicTemporarily("employee dismissal", "r", 4)

	stats, err := eng.Statistics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalFingerprints != 1 {
		t.Errorf("expected 1 fingerprint, got %d", stats.TotalFingerprints)
	}
	if stats.ByProducer["hourly"] != 1 {
		t.Errorf("unexpected producer counts: %v", stats.ByProducer)
	}
	if stats.PermanentlyBlocked != 1 || stats.TemporarilyBlocked != 1 {
		t.Errorf("unexpected block counts: %+v", stats)
	}
	if stats.SimilarityThreshold != config.Default().Engine.SimilarityThreshold {
		t.Errorf("unexpected threshold %v", stats.SimilarityThreshold)
	}
	if stats.Counters.Checks != 2 || stats.Counters.Accepted != 1 || stats.Counters.ExactRejections != 1 {
		t.Errorf("unexpected counters: %+v", stats.Counters)
	}
}

func TestCleanup(t *testing.T) {
	eng, db := newTestEngine(t)

	eng.ValidateAndRegister("Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.", "news", "hourly")

	past := time.Now().Add(-1 * time.Hour)
	db.UpsertBlockedTopic("expired topic", "expired topic", "r", &past)
	eng.BlockTopicPermanently("tax audit", "r")

	result, err := eng.Cleanup(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DeletedFingerprints != 0 {
		t.Errorf("fresh fingerprints must survive, deleted %d", result.DeletedFingerprints)
	}
	if result.DeletedBlocks != 1 {
		t.Errorf("expected 1 expired block removed, got %d", result.DeletedBlocks)
	}

	bt, _ := db.GetBlockedTopic("tax audit")
	if bt == nil {
		t.Error("permanent block must survive cleanup")
	}
}
