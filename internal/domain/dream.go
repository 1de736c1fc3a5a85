package domain

import (
	"sort"
	"strings"
	"time"
)

// DreamEntry is one recorded dream. The keywords column doubles as an opaque
// tag set used by the entitlement engine for period markers; all parsing of
// that representation is confined to TagSet.
type DreamEntry struct {
	ID         string
	UserID     string
	SleptAt    *time.Time
	Text       string
	SymbolsRaw string
	LLMJSON    []byte
	Keywords   string
	Sentiment  string
	TokensIn   int
	TokensOut  int
	CostRub    float64
	CreatedAt  time.Time
}

// BaseTime is the instant a dream is attributed to: sleptAt when recorded,
// otherwise the row creation time.
func (d *DreamEntry) BaseTime() time.Time {
	if d.SleptAt != nil {
		return *d.SleptAt
	}
	return d.CreatedAt
}

// Tags parses the comma-joined keywords column into a set.
func (d *DreamEntry) Tags() TagSet {
	return ParseTagSet(d.Keywords)
}

// TagSet is a set of opaque marker strings stored comma-joined on a dream
// entry. Besides free-form keywords it carries period markers such as
// "practice_issued:2025-08-31".
type TagSet map[string]struct{}

// ParseTagSet splits a comma-joined keywords value into a set, dropping
// empty fragments.
func ParseTagSet(keywords string) TagSet {
	set := TagSet{}
	if keywords == "" {
		return set
	}
	for _, raw := range strings.Split(keywords, ",") {
		if v := strings.TrimSpace(raw); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func (s TagSet) Has(tag string) bool {
	_, ok := s[strings.TrimSpace(tag)]
	return ok
}

func (s TagSet) Add(tag string) {
	if v := strings.TrimSpace(tag); v != "" {
		s[v] = struct{}{}
	}
}

func (s TagSet) Remove(tag string) {
	delete(s, strings.TrimSpace(tag))
}

// String renders the set back into the stored comma-joined form. Order is
// stable so repeated round-trips do not churn the column.
func (s TagSet) String() string {
	if len(s) == 0 {
		return ""
	}
	tags := make([]string, 0, len(s))
	for t := range s {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return strings.Join(tags, ", ")
}
