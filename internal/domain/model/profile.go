// Package model contains domain models passed between layers.
package model

// Profile is a point-in-time snapshot of a member's attributes as supplied
// by the external profile store. The engine never mutates or writes back.
type Profile struct {
	ID                 string
	City               string
	Specialty          string
	CareerStage        string
	Age                int // 0 means unknown
	Gender             string
	Interests          []string
	SocialPrefs        []string
	AvailabilityPrefs  []string
	Institutions       []string
	Verified           bool
	Subscribed         bool
	OnboardingComplete bool
}

// EligibleMember is a Profile that passed the eligibility rules for one run,
// tagged with the locality bucket it belongs to.
type EligibleMember struct {
	Profile Profile
	City    string
}
