// Package domain contains core domain types for the crackd mentor service.
package domain

import (
	"strings"
	"time"
)

// User represents an identified visitor. Identity is anonymous and per device.
type User struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SkillLevel is the self-reported interview experience of a user.
type SkillLevel string

// Skill levels offered during onboarding.
const (
	SkillBeginner     SkillLevel = "Beginner"
	SkillIntermediate SkillLevel = "Intermediate"
	SkillAdvanced     SkillLevel = "Advanced"
)

// ParseSkillLevel normalizes a skill level. Unknown values report false.
func ParseSkillLevel(s string) (SkillLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return SkillBeginner, true
	case "intermediate":
		return SkillIntermediate, true
	case "advanced":
		return SkillAdvanced, true
	default:
		return "", false
	}
}

// Profile personalizes the mentor for a user. A session cannot start without one.
type Profile struct {
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	SkillLevel SkillLevel `json:"skill_level"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Initial returns the upper-cased first letter of the username, used for avatars.
func (p *Profile) Initial() string {
	for _, r := range p.Username {
		return strings.ToUpper(string(r))
	}
	return ""
}
