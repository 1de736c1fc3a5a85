package llm

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestPromptRegistryVersionLabels(t *testing.T) {
	reg := NewPromptRegistry(zerolog.Nop())

	first := reg.Register("interpret_system", "prompt one")
	second := reg.Register("followup_system", "prompt two")

	if !strings.HasPrefix(first.Version, "v1-") {
		t.Fatalf("first version = %q", first.Version)
	}
	if !strings.HasPrefix(second.Version, "v2-") {
		t.Fatalf("second version = %q", second.Version)
	}
	if len(first.Checksum) != 8 {
		t.Fatalf("checksum length = %d", len(first.Checksum))
	}

	// Same content always hashes the same.
	again := reg.Register("interpret_system", "prompt one")
	if again.Checksum != first.Checksum {
		t.Fatalf("checksum changed for identical content: %q vs %q", again.Checksum, first.Checksum)
	}
}

func TestPromptRegistryHistoryIsAppendOnly(t *testing.T) {
	reg := NewPromptRegistry(zerolog.Nop())
	reg.Register("p", "old text")
	latest := reg.Register("p", "new text")

	history := reg.History("p")
	if len(history) != 2 {
		t.Fatalf("history length = %d", len(history))
	}
	if history[0].Content != "old text" || history[1].Content != "new text" {
		t.Fatalf("history out of order: %+v", history)
	}

	current, ok := reg.Current("p")
	if !ok || current.Version != latest.Version {
		t.Fatalf("Current = %+v, ok=%v", current, ok)
	}
}

func TestPromptRegistryVerifyChecksum(t *testing.T) {
	reg := NewPromptRegistry(zerolog.Nop())
	pv := reg.Register("p", "text")

	if !reg.VerifyChecksum("p", pv.Checksum) {
		t.Fatal("matching checksum rejected")
	}
	if reg.VerifyChecksum("p", "deadbeef") {
		t.Fatal("mismatched checksum accepted")
	}
	if reg.VerifyChecksum("missing", pv.Checksum) {
		t.Fatal("unknown prompt id accepted")
	}
}
