package llm

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// SymbolCount pairs a dream symbol with how often it appeared in the period.
type SymbolCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// NormalizeSymbols trims, case-folds and dedupes a user-declared symbol list,
// keeping the first spelling seen and at most max entries.
func NormalizeSymbols(symbols []string, max int) []string {
	folder := cases.Fold()
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := folder.String(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// TopSymbols returns the n most frequent symbols, most frequent first. Ties
// keep their input order.
func TopSymbols(counts []SymbolCount, n int) []SymbolCount {
	sorted := make([]SymbolCount, len(counts))
	copy(sorted, counts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Count > sorted[j].Count })
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// fallbackSummary is the deterministic report text used when generation
// exhausts its retries. It must never fail.
func fallbackSummary(top []SymbolCount) string {
	switch {
	case len(top) >= 2:
		return fmt.Sprintf("A period shaped by %s and %s: inner storylines on the move, gently asking to be reread ✨", top[0].Symbol, top[1].Symbol)
	case len(top) == 1:
		return fmt.Sprintf("A period shaped by %s: this image matters right now and asks for your attention ✨", top[0].Symbol)
	default:
		return "A calm period with no recurring images 🙂"
	}
}
