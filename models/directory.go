package models

// ResolvedPerson is a bookable person as published by the directory.
type ResolvedPerson struct {
	Name               string          `bson:"name" json:"name"`
	Aliases            []string        `bson:"aliases,omitempty" json:"aliases,omitempty"`
	DefaultSlotMinutes int             `bson:"defaultSlotMinutes,omitempty" json:"defaultSlotMinutes,omitempty"`
	WorkingHours       []WorkingWindow `bson:"workingHours,omitempty" json:"workingHours,omitempty"`
}

// ResolvedService is a bookable service as published by the directory.
type ResolvedService struct {
	Name            string   `bson:"name" json:"name"`
	Aliases         []string `bson:"aliases,omitempty" json:"aliases,omitempty"`
	DurationMinutes int      `bson:"durationMinutes" json:"durationMinutes"`
	DefaultSkill    string   `bson:"defaultSkill,omitempty" json:"defaultSkill,omitempty"`
}

// WorkingWindow is a recurring availability template attached to a person:
// a weekday plus a [start, end) range in minutes from midnight, in the
// configured local offset.
type WorkingWindow struct {
	Weekday     int      `bson:"weekday" json:"weekday"` // 0 = Sunday, matching time.Weekday
	StartMinute int      `bson:"startMinute" json:"startMinute"`
	EndMinute   int      `bson:"endMinute" json:"endMinute"`
	Skills      []string `bson:"skills,omitempty" json:"skills,omitempty"`
}

// Directory is the read-only set of bookable people and services handed to
// the engine on each turn. The caller owns refreshing and caching it; the
// engine never mutates it.
type Directory struct {
	People   []ResolvedPerson  `json:"people"`
	Services []ResolvedService `json:"services"`
}
