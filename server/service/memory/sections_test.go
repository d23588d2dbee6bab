package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMemory(t *testing.T) {
	previous := RenderSections(map[string]string{
		SectionLongTerm:         "Likes tea.",
		SectionShortTerm:        "Moving house.",
		SectionLastConversation: "Boxes.",
	})

	tests := []struct {
		name   string
		merged string
		want   map[string]string
	}{
		{
			name:   "complete output",
			merged: "<long_term_memory>A</long_term_memory>\n<short_term_memory>B</short_term_memory>\n<last_conversation>C</last_conversation>",
			want:   map[string]string{SectionLongTerm: "A", SectionShortTerm: "B", SectionLastConversation: "C"},
		},
		{
			name:   "fenced output",
			merged: "```xml\n<long_term_memory>A</long_term_memory>\n<short_term_memory>B</short_term_memory>\n<last_conversation>C</last_conversation>\n```",
			want:   map[string]string{SectionLongTerm: "A", SectionShortTerm: "B", SectionLastConversation: "C"},
		},
		{
			name:   "missing section keeps previous",
			merged: "<long_term_memory>A</long_term_memory>\n<last_conversation>C</last_conversation>",
			want:   map[string]string{SectionLongTerm: "A", SectionShortTerm: "Moving house.", SectionLastConversation: "C"},
		},
		{
			name:   "unsectioned output becomes last conversation",
			merged: "They unpacked the kitchen.",
			want:   map[string]string{SectionLongTerm: "Likes tea.", SectionShortTerm: "Moving house.", SectionLastConversation: "They unpacked the kitchen."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMemory(tt.merged, previous)
			assert.Equal(t, RenderSections(tt.want), got)
		})
	}

	t.Run("free text on both sides", func(t *testing.T) {
		got := NormalizeMemory("  new text\n", "old text")
		assert.Equal(t, RenderSections(map[string]string{SectionLastConversation: "new text"}), got)
		for _, name := range []string{SectionLongTerm, SectionShortTerm, SectionLastConversation} {
			assert.Contains(t, got, "<"+name+">")
		}
	})

	t.Run("empty previous memory", func(t *testing.T) {
		got := NormalizeMemory("User likes tea.", "")
		assert.Equal(t, map[string]string{SectionLongTerm: "", SectionShortTerm: "", SectionLastConversation: "User likes tea."}, ParseSections(got))
	})
}

func TestRenderSections(t *testing.T) {
	got := RenderSections(map[string]string{SectionLongTerm: "A"})
	assert.Equal(t, "<long_term_memory>\nA\n</long_term_memory>\n<short_term_memory>\n</short_term_memory>\n<last_conversation>\n</last_conversation>", got)
	assert.Equal(t, map[string]string{SectionLongTerm: "A", SectionShortTerm: "", SectionLastConversation: ""}, ParseSections(got))
}
