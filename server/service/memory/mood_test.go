package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMood(t *testing.T) {
	tests := []struct {
		raw   string
		want  Mood
		known bool
	}{
		{"U+1F604", MoodJoy, true},
		{" U+1F630\n", MoodStress, true},
		{"U+1F62B", MoodTired, true},
		{"U+1F929", MoodExcited, true},
		{"U+1F614", MoodABitSad, true},
		{"U+1F610", MoodOk, true},
		{"Joy", Mood("Joy"), false},
		{"U+1F604 because they were happy", Mood("U+1F604 because they were happy"), false},
	}
	for _, tt := range tests {
		mood, known := ParseMood(tt.raw)
		assert.Equal(t, tt.want, mood, tt.raw)
		assert.Equal(t, tt.known, known, tt.raw)
	}
	assert.Len(t, Moods(), 6)
	assert.Equal(t, "A Bit Sad", MoodABitSad.Name())
	assert.Equal(t, "meh", Mood("meh").Name())
}

// A deterministic classifier always lands in the closed set.
func TestMoodClassifierIsClosed(t *testing.T) {
	for _, mood := range Moods() {
		f := newFixture(t, scriptedLLM(string(mood), mergedMemory, "summary"))
		got, err := f.orch.classifyMood(context.Background(), "user: hi\n")
		require.NoError(t, err)
		assert.True(t, got.IsKnown())
		assert.Equal(t, mood, got)
	}
}

func TestLoadPrompts(t *testing.T) {
	prompts, err := LoadPrompts(nil)
	require.NoError(t, err)
	messages := prompts.Merge.Messages(map[string]string{"memory": "MEM", "conversation": "CONV"})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[1].Content, "CURRENT MEMORY:\nMEM")
	assert.Contains(t, messages[1].Content, "LATEST CONVERSATION:\nCONV")
	assert.Contains(t, prompts.Mood.System, "U+1F610")

	_, err = LoadPrompts([]byte("merge:\n  system: x\n"))
	assert.Error(t, err)
	_, err = LoadPrompts([]byte("::"))
	assert.Error(t, err)
}
