package blocklist

import (
	"fmt"
	"time"

	"github.com/pravoguard/contentguard/internal/database"
	"github.com/pravoguard/contentguard/internal/fingerprint"
)

// Manager handles temporary and permanent topic suppression. Blocks are
// advisory: they steer the classifier away from a subject without touching
// stored fingerprints.
type Manager struct {
	db  *database.DB
	now func() time.Time
}

// NewManager creates a blocklist manager over the given store.
func NewManager(db *database.DB) *Manager {
	return &Manager{db: db, now: time.Now}
}

// SetNow overrides the clock; tests use it to exercise expiry.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

// BlockTemporary suppresses a topic until now+duration. Re-blocking an
// already-blocked topic extends its window.
func (m *Manager) BlockTemporary(topic, reason string, duration time.Duration) error {
	normalized := fingerprint.Normalize(topic)
	if normalized == "" {
		return fmt.Errorf("cannot block empty topic")
	}
	until := m.now().Add(duration)
	if err := m.db.UpsertBlockedTopic(normalized, topic, reason, &until); err != nil {
		return fmt.Errorf("blocking topic %q: %w", topic, err)
	}
	return nil
}

// BlockPermanent suppresses a topic with no expiry.
func (m *Manager) BlockPermanent(topic, reason string) error {
	normalized := fingerprint.Normalize(topic)
	if normalized == "" {
		return fmt.Errorf("cannot block empty topic")
	}
	if err := m.db.UpsertBlockedTopic(normalized, topic, reason, nil); err != nil {
		return fmt.Errorf("blocking topic %q: %w", topic, err)
	}
	return nil
}

// IsBlocked reports whether a topic is currently suppressed. Expired blocks
// do not count, though their rows remain until cleanup.
func (m *Manager) IsBlocked(topic string) (bool, error) {
	bt, err := m.db.GetBlockedTopic(fingerprint.Normalize(topic))
	if err != nil {
		return false, err
	}
	if bt == nil {
		return false, nil
	}
	return m.active(bt), nil
}

// ListBlocked returns all currently-active blocks, newest first.
func (m *Manager) ListBlocked() ([]database.BlockedTopic, error) {
	return m.db.GetActiveBlockedTopics(m.now())
}

// Unblock hard-deletes a block and reports whether one existed.
func (m *Manager) Unblock(topic string) (bool, error) {
	return m.db.DeleteBlockedTopic(fingerprint.Normalize(topic))
}

func (m *Manager) active(bt *database.BlockedTopic) bool {
	if bt.BlockedUntil == nil {
		return true
	}
	until, err := time.Parse(database.TimeLayout, *bt.BlockedUntil)
	if err != nil {
		return true // unparseable expiry: keep suppressing rather than leak
	}
	return m.now().UTC().Before(until)
}
