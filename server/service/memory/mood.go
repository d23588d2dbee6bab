package memory

import (
	"strings"
)

// Mood is the sentiment tag of a conversation, stored as an emoji code point.
type Mood string

const (
	MoodJoy     Mood = "U+1F604"
	MoodStress  Mood = "U+1F630"
	MoodTired   Mood = "U+1F62B"
	MoodExcited Mood = "U+1F929"
	MoodABitSad Mood = "U+1F614"
	MoodOk      Mood = "U+1F610"
)

var moodNames = map[Mood]string{
	MoodJoy:     "Joy",
	MoodStress:  "Stress",
	MoodTired:   "Tired",
	MoodExcited: "Excited",
	MoodABitSad: "A Bit Sad",
	MoodOk:      "Ok",
}

// Moods lists the closed set in display order.
func Moods() []Mood {
	return []Mood{MoodJoy, MoodStress, MoodTired, MoodExcited, MoodABitSad, MoodOk}
}

// IsKnown reports whether m belongs to the closed set.
func (m Mood) IsKnown() bool {
	_, ok := moodNames[m]
	return ok
}

// Name returns the human name, or the raw value for unknown moods.
func (m Mood) Name() string {
	if name, ok := moodNames[m]; ok {
		return name
	}
	return string(m)
}

// ParseMood trims classifier output. Unknown values are returned as-is with ok=false.
func ParseMood(raw string) (mood Mood, ok bool) {
	mood = Mood(strings.TrimSpace(raw))
	return mood, mood.IsKnown()
}
