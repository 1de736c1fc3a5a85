package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Field bounds of the structured interpretation contract.
const (
	MaxShortTitle         = 60
	MaxSymbolsDetected    = 12
	MaxBarnumInsight      = 300
	MaxEsotericText       = 700
	MaxReflectiveQuestion = 200
	MaxGentleAdvice       = 5
	MaxPaywallTeaser      = 140
)

// Interpretation is the validated structured output of an interpret call.
type Interpretation struct {
	ShortTitle             string   `json:"short_title"`
	SymbolsDetected        []string `json:"symbols_detected"`
	BarnumInsight          string   `json:"barnum_insight"`
	EsotericInterpretation string   `json:"esoteric_interpretation"`
	ReflectiveQuestion     string   `json:"reflective_question"`
	GentleAdvice           []string `json:"gentle_advice"`
	RiskFlags              []string `json:"risk_flags,omitempty"`
	PaywallTeaser          string   `json:"paywall_teaser,omitempty"`
}

var requiredInterpretationFields = []string{
	"short_title",
	"symbols_detected",
	"barnum_insight",
	"esoteric_interpretation",
	"reflective_question",
}

// DecodeInterpretation turns an extracted JSON object into a validated
// Interpretation. Over-length free-text fields are truncated before
// validation so verbose models are repaired rather than rejected; structural
// mismatches (missing required field, wrong type) fail hard.
func DecodeInterpretation(data []byte) (*Interpretation, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaValidationError{Field: "root", Reason: "not a JSON object"}
	}
	for _, field := range requiredInterpretationFields {
		if _, ok := raw[field]; !ok {
			return nil, &SchemaValidationError{Field: field, Reason: "is required"}
		}
	}
	var out Interpretation
	if err := json.Unmarshal(data, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &SchemaValidationError{Field: typeErr.Field, Reason: fmt.Sprintf("has wrong type %s", typeErr.Value)}
		}
		return nil, &SchemaValidationError{Field: "root", Reason: err.Error()}
	}
	out.Clamp()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	if out.GentleAdvice == nil {
		out.GentleAdvice = []string{}
	}
	return &out, nil
}

// Clamp truncates free-text fields to their schema bounds. It never touches
// list cardinality: an over-long list is a validation failure, not something
// to silently repair.
func (i *Interpretation) Clamp() {
	i.ShortTitle = clampStr(i.ShortTitle, MaxShortTitle)
	i.BarnumInsight = clampStr(i.BarnumInsight, MaxBarnumInsight)
	i.EsotericInterpretation = clampStr(i.EsotericInterpretation, MaxEsotericText)
	i.ReflectiveQuestion = clampStr(i.ReflectiveQuestion, MaxReflectiveQuestion)
	i.PaywallTeaser = clampStr(i.PaywallTeaser, MaxPaywallTeaser)
}

// Validate checks the field constraints. Clamp is expected to have run first.
func (i *Interpretation) Validate() error {
	if runeLen(i.ShortTitle) > MaxShortTitle {
		return &SchemaValidationError{Field: "short_title", Reason: fmt.Sprintf("exceeds %d chars", MaxShortTitle)}
	}
	if len(i.SymbolsDetected) > MaxSymbolsDetected {
		return &SchemaValidationError{Field: "symbols_detected", Reason: fmt.Sprintf("exceeds %d items", MaxSymbolsDetected)}
	}
	if runeLen(i.BarnumInsight) > MaxBarnumInsight {
		return &SchemaValidationError{Field: "barnum_insight", Reason: fmt.Sprintf("exceeds %d chars", MaxBarnumInsight)}
	}
	if runeLen(i.EsotericInterpretation) > MaxEsotericText {
		return &SchemaValidationError{Field: "esoteric_interpretation", Reason: fmt.Sprintf("exceeds %d chars", MaxEsotericText)}
	}
	if runeLen(i.ReflectiveQuestion) > MaxReflectiveQuestion {
		return &SchemaValidationError{Field: "reflective_question", Reason: fmt.Sprintf("exceeds %d chars", MaxReflectiveQuestion)}
	}
	if len(i.GentleAdvice) > MaxGentleAdvice {
		return &SchemaValidationError{Field: "gentle_advice", Reason: fmt.Sprintf("exceeds %d items", MaxGentleAdvice)}
	}
	if runeLen(i.PaywallTeaser) > MaxPaywallTeaser {
		return &SchemaValidationError{Field: "paywall_teaser", Reason: fmt.Sprintf("exceeds %d chars", MaxPaywallTeaser)}
	}
	return nil
}

func clampStr(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func runeLen(s string) int { return len([]rune(s)) }
