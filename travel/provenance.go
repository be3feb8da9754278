package travel

import "time"

// Source classifies where a piece of data came from.
type Source string

const (
	// SourceTool marks data fetched through the tool executor.
	SourceTool Source = "tool"
	// SourceRAG marks data drawn from a retrieval layer.
	SourceRAG Source = "rag"
	// SourceUser marks data the user supplied directly.
	SourceUser Source = "user"
	// SourceFixture marks data filled from built-in knowledge or features.
	SourceFixture Source = "fixture"
	// SourceRepair marks data synthesized by a repair move.
	SourceRepair Source = "repair"
	// SourcePlanner marks data estimated by the planner.
	SourcePlanner Source = "planner"
)

// KnownSources enumerates the recognized provenance source kinds.
var KnownSources = []Source{SourceTool, SourceRAG, SourceUser, SourceFixture, SourceRepair, SourcePlanner}

// Provenance records the origin of a data item so the synthesizer can attach
// citations and the audit trail stays reconstructable.
type Provenance struct {
	// Source is the origin kind.
	Source Source `json:"source"`
	// RefID optionally identifies the record within its source.
	RefID string `json:"ref_id,omitempty"`
	// URL optionally points at the upstream document.
	URL string `json:"url,omitempty"`
	// FetchedAt is when the data was obtained.
	FetchedAt time.Time `json:"fetched_at"`
	// CacheHit reports whether the executor served the data from cache.
	CacheHit TriState `json:"cache_hit"`
	// Digest is the hex SHA-256 of the original response payload, when known.
	Digest string `json:"digest,omitempty"`
}

// Known reports whether s is one of the recognized source kinds.
func (s Source) Known() bool {
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}
