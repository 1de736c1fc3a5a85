package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"dreambot/internal/infra"
)

// PromptVersion is an immutable record of one registered prompt text. The
// version label correlates log lines with the exact prompt that produced an
// output.
type PromptVersion struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	Checksum  string    `json:"checksum"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// PromptRegistry is an append-only registry of prompt versions keyed by
// prompt id. Registering the same id again records a new version; earlier
// ones stay in the history.
type PromptRegistry struct {
	mu       sync.Mutex
	logger   infra.Logger
	versions []PromptVersion
	current  map[string]PromptVersion
}

func NewPromptRegistry(logger infra.Logger) *PromptRegistry {
	return &PromptRegistry{
		logger:  logger,
		current: make(map[string]PromptVersion),
	}
}

// Register records content under id and returns its version. The version
// label is vN-<checksum> where N increases monotonically across the registry
// and the checksum is the first 8 hex chars of the content's SHA-256.
func (r *PromptRegistry) Register(id, content string) PromptVersion {
	sum := sha256.Sum256([]byte(content))
	checksum := hex.EncodeToString(sum[:])[:8]

	r.mu.Lock()
	pv := PromptVersion{
		ID:        id,
		Version:   fmt.Sprintf("v%d-%s", len(r.versions)+1, checksum),
		Checksum:  checksum,
		Content:   content,
		CreatedAt: time.Now(),
	}
	r.versions = append(r.versions, pv)
	r.current[id] = pv
	r.mu.Unlock()

	r.logger.Info().
		Str("prompt_id", id).
		Str("version", pv.Version).
		Str("checksum", checksum).
		Int("content_length", len(content)).
		Msg("prompt registered")
	return pv
}

// Current returns the most recently registered version of id.
func (r *PromptRegistry) Current(id string) (PromptVersion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pv, ok := r.current[id]
	return pv, ok
}

// History returns every registered version of id, oldest first.
func (r *PromptRegistry) History(id string) []PromptVersion {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PromptVersion
	for _, pv := range r.versions {
		if pv.ID == id {
			out = append(out, pv)
		}
	}
	return out
}

// VerifyChecksum reports whether the current version of id still carries the
// expected checksum. Mismatches are logged and mean the prompt text drifted
// from what an audit trail recorded.
func (r *PromptRegistry) VerifyChecksum(id, expected string) bool {
	pv, ok := r.Current(id)
	if !ok {
		r.logger.Warn().Str("prompt_id", id).Msg("prompt not found in registry")
		return false
	}
	if pv.Checksum != expected {
		r.logger.Warn().
			Str("prompt_id", id).
			Str("expected_checksum", expected).
			Str("actual_checksum", pv.Checksum).
			Msg("prompt checksum mismatch")
		return false
	}
	return true
}

// Export snapshots the full registry for backup.
func (r *PromptRegistry) Export() []PromptVersion {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PromptVersion, len(r.versions))
	copy(out, r.versions)
	return out
}
