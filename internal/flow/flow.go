// Package flow orchestrates the gated user operations. Each flow runs the
// same pipeline: rate limit, entitlement check, LLM call, usage accounting,
// counter advance, then renders the user-facing text. The messenger transport
// that delivers the text lives outside this package.
package flow

import (
	"strings"
	"time"

	"dreambot/internal/auth"
	"dreambot/internal/domain"
	"dreambot/internal/entitlement"
	"dreambot/internal/infra"
	"dreambot/internal/llm"
	"dreambot/internal/metrics"
	"dreambot/internal/ratelimit"
	"dreambot/internal/usage"
)

// Flows bundles the dependencies of the four gated operations.
type Flows struct {
	users   domain.UserRepository
	dreams  domain.DreamRepository
	engine  *entitlement.Engine
	limiter *ratelimit.Limiter
	llm     *llm.Service
	cost    usage.CostEstimator
	admins  *auth.Admins
	metrics *metrics.Metrics
	logger  infra.Logger

	now func() time.Time
}

func New(
	users domain.UserRepository,
	dreams domain.DreamRepository,
	engine *entitlement.Engine,
	limiter *ratelimit.Limiter,
	service *llm.Service,
	cost usage.CostEstimator,
	admins *auth.Admins,
	m *metrics.Metrics,
	logger infra.Logger,
) *Flows {
	return &Flows{
		users:   users,
		dreams:  dreams,
		engine:  engine,
		limiter: limiter,
		llm:     service,
		cost:    cost,
		admins:  admins,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Outcome is the rendered result of one flow. Blocked outcomes carry the
// explanation to show the user instead of the operation's output; internal
// failures are returned as errors, not outcomes.
type Outcome struct {
	HTML    string
	Blocked bool
	Reason  string
}

func blocked(reason, html string) *Outcome {
	return &Outcome{HTML: html, Blocked: true, Reason: reason}
}

// esc escapes text destined for HTML-formatted messages.
func esc(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

func (f *Flows) plan(u *domain.User) string {
	return entitlement.SafePlan(u.Plan)
}

// splitSymbols breaks a free-form symbols string on commas and semicolons.
func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
