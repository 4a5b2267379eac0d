package database

// TimeLayout is the canonical timestamp format stored in the database.
// It matches sqlite's datetime('now') output so comparisons work either way.
const TimeLayout = "2006-01-02 15:04:05"

// Fingerprint is one accepted post's stored representation.
// Rows are append-only; only usage_count/last_used may be bumped later.
type Fingerprint struct {
	ID             int64
	TitleHash      string
	BodyHash       string
	FullTextHash   string
	TopicKeywords  []string
	SemanticTokens []string
	LegalRefs      []string
	ContentType    string
	ProducerID     string
	UsageCount     int
	CreatedAt      *string
	LastUsed       *string
}

// BlockedTopic is one suppressed topic. A nil BlockedUntil means permanent.
type BlockedTopic struct {
	ID              int64
	TopicNormalized string
	TopicOriginal   string
	Reason          string
	BlockedAt       *string
	BlockedUntil    *string
	ConflictCount   int
}

// Report is a persisted markdown activity digest.
type Report struct {
	ID           int64
	BodyMarkdown string
	GeneratedAt  *string
}

// Stats contains aggregate store statistics.
type Stats struct {
	TotalFingerprints  int
	ByProducer         map[string]int
	PermanentlyBlocked int
	TemporarilyBlocked int
	LastActivity       *string
}
