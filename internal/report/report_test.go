package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/pravoguard/contentguard/internal/config"
	"github.com/pravoguard/contentguard/internal/database"
	"github.com/pravoguard/contentguard/internal/engine"
)

func newTestBuilder(t *testing.T) (*Builder, *database.DB, *engine.Engine) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng, err := engine.New(config.Default(), db)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return NewBuilder(db, eng), db, eng
}

func TestBuildEmptyStore(t *testing.T) {
	b, _, _ := newTestBuilder(t)

	md, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md, "# Deduplication activity report") {
		t.Error("expected report heading")
	}
	if !strings.Contains(md, "Fingerprints on record: **0**") {
		t.Errorf("expected zero fingerprints, got:\n%s", md)
	}
	if !strings.Contains(md, "None.") {
		t.Error("expected empty blocklist section")
	}
}

func TestBuildWithActivity(t *testing.T) {
	b, _, eng := newTestBuilder(t)

	eng.ValidateAndRegister("Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.", "news", "hourly")
	eng.ValidateAndRegister("Divorce paperwork basics",
		"How to file a claim for divorce and split property fairly.", "news", "daily")
	eng.BlockTopicPermanently("tax audit", "always duplicated")

	md, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(md, "Fingerprints on record: **1**") {
		t.Errorf("expected one fingerprint, got:\n%s", md)
	}
	if !strings.Contains(md, "| hourly | 1 |") {
		t.Errorf("expected producer row, got:\n%s", md)
	}
	if !strings.Contains(md, "1 exact") {
		t.Errorf("expected exact-rejection counter, got:\n%s", md)
	}
	if !strings.Contains(md, "| tax audit | always duplicated | permanent | 0 |") {
		t.Errorf("expected blocked-topic row, got:\n%s", md)
	}
}

func TestSavePersistsReport(t *testing.T) {
	b, db, _ := newTestBuilder(t)

	id, err := b.Save()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a report ID")
	}

	r, err := db.GetReport(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil || !strings.Contains(r.BodyMarkdown, "# Deduplication activity report") {
		t.Errorf("stored report did not round-trip: %+v", r)
	}
}
