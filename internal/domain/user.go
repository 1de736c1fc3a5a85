package domain

import "time"

// User is the bot account referenced by every gated operation. Plan and the
// monthly counter are owned by payment webhooks / admin commands and the
// entitlement engine respectively; this core only reads and advances them.
type User struct {
	ID              string
	TgID            string
	Plan            string
	PlanUntil       *time.Time
	MonthlyCount    int
	LastPlanReset   *time.Time
	Timezone        string
	AgeBand         string
	Chronotype      string
	EsotericaLevel  int
	SleepGoal       string
	WakeTime        string
	SleepTime       string
	StressLevel     *int
	DreamFrequency  string
	LastReportAt    *time.Time
	LastReportMonth string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Location resolves the user's configured timezone, falling back to UTC when
// unset or unknown.
func (u *User) Location() *time.Location {
	if u == nil || u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Profile is the user snapshot embedded into LLM prompts. Tone is fixed to
// poetic for every call.
type Profile struct {
	Timezone       string `json:"timezone"`
	AgeBand        string `json:"ageBand,omitempty"`
	Chronotype     string `json:"chronotype,omitempty"`
	Tone           string `json:"tone"`
	EsotericaLevel int    `json:"esotericaLevel"`
	SleepGoal      string `json:"sleepGoal,omitempty"`
	WakeTime       string `json:"wakeTime,omitempty"`
	SleepTime      string `json:"sleepTime,omitempty"`
	StressLevel    *int   `json:"stressLevel,omitempty"`
	DreamFrequency string `json:"dreamFrequency,omitempty"`
}

// ProfileOf builds the prompt snapshot from a stored user.
func ProfileOf(u *User) Profile {
	p := Profile{
		Timezone:       "UTC",
		Tone:           "poetic",
		EsotericaLevel: 50,
	}
	if u == nil {
		return p
	}
	if u.Timezone != "" {
		p.Timezone = u.Timezone
	}
	if u.EsotericaLevel > 0 {
		p.EsotericaLevel = u.EsotericaLevel
	}
	p.AgeBand = u.AgeBand
	p.Chronotype = u.Chronotype
	p.SleepGoal = u.SleepGoal
	p.WakeTime = u.WakeTime
	p.SleepTime = u.SleepTime
	p.StressLevel = u.StressLevel
	p.DreamFrequency = u.DreamFrequency
	return p
}
