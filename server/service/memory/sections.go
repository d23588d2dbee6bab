package memory

import (
	"strings"
)

// Section names of the memory document, in order.
const (
	SectionLongTerm         = "long_term_memory"
	SectionShortTerm        = "short_term_memory"
	SectionLastConversation = "last_conversation"
)

var sectionOrder = []string{SectionLongTerm, SectionShortTerm, SectionLastConversation}

// extractSection returns the body between <name> and </name>.
func extractSection(doc, name string) (string, bool) {
	open, closing := "<"+name+">", "</"+name+">"
	start := strings.Index(doc, open)
	if start < 0 {
		return "", false
	}
	rest := doc[start+len(open):]
	end := strings.Index(rest, closing)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// ParseSections returns the sections found in doc.
func ParseSections(doc string) map[string]string {
	sections := make(map[string]string, len(sectionOrder))
	for _, name := range sectionOrder {
		if body, ok := extractSection(doc, name); ok {
			sections[name] = body
		}
	}
	return sections
}

// RenderSections writes the three sections in canonical form.
func RenderSections(sections map[string]string) string {
	var sb strings.Builder
	for i, name := range sectionOrder {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("<" + name + ">\n")
		if body := sections[name]; body != "" {
			sb.WriteString(body)
			sb.WriteString("\n")
		}
		sb.WriteString("</" + name + ">")
	}
	return sb.String()
}

// NormalizeMemory rebuilds merged so it holds all three sections.
// A section missing from merged keeps its previous body. Unsectioned output is
// kept as the last conversation.
func NormalizeMemory(merged, previous string) string {
	merged = stripFence(merged)
	got := ParseSections(merged)
	prev := ParseSections(previous)

	if len(got) == 0 {
		got[SectionLastConversation] = merged
	}
	for _, name := range sectionOrder {
		if _, ok := got[name]; !ok {
			got[name] = prev[name]
		}
	}
	return RenderSections(got)
}

// stripFence removes a surrounding markdown code fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
