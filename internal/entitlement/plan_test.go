package entitlement

import "testing"

func TestSafePlan(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"free", PlanFree},
		{"paid", PlanPaid},
		{"plus", PlanPaid},
		{"lite", PlanPaid},
		{"pro", PlanPaid},
		{"premium", PlanPaid},
		{" paid ", PlanPaid},
		{"", PlanFree},
		{"enterprise", PlanFree},
		{"FREE", PlanFree},
	}
	for _, tt := range tests {
		if got := SafePlan(tt.in); got != tt.want {
			t.Errorf("SafePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanInterpret(t *testing.T) {
	if CanInterpret("free", 5) {
		t.Fatal("free at quota must be blocked")
	}
	if !CanInterpret("free", 4) {
		t.Fatal("free under quota must pass")
	}
	if !CanInterpret("paid", 5000) {
		t.Fatal("paid is unlimited")
	}
	if !CanInterpret("unknown-tier", 0) {
		t.Fatal("unknown plan normalizes to free with full quota")
	}
}

func TestCanAskFollowup(t *testing.T) {
	if CanAskFollowup("free", 3) {
		t.Fatal("free at follow-up quota must be blocked")
	}
	if !CanAskFollowup("free", 2) {
		t.Fatal("free under follow-up quota must pass")
	}
	if !CanAskFollowup("premium", 999) {
		t.Fatal("paid alias is unlimited")
	}
}

func TestCanRunWeekly(t *testing.T) {
	if CanRunWeekly("free", 1) {
		t.Fatal("free second weekly in a month must be blocked")
	}
	if !CanRunWeekly("free", 0) {
		t.Fatal("free first weekly must pass")
	}
	if !CanRunWeekly("paid", 10) {
		t.Fatal("paid is unlimited")
	}
}
