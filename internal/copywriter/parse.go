package copywriter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)]|#+)\s*`)

// ParseConcepts reads "TITLE | SUBTITLE | IMAGE_PROMPT" lines out of a model
// reply. Missing fields are filled from the brief and the result always has
// exactly brief.Count concepts.
func ParseConcepts(text string, brief Brief) *Draft {
	brief = brief.Normalized()
	draft := &Draft{}

	lines := lo.Filter(strings.Split(trimCodeFence(text), "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
	for i, line := range lines {
		if len(draft.Concepts) == brief.Count {
			draft.Issues = append(draft.Issues, fmt.Sprintf("dropped %d extra lines", len(lines)-i))
			break
		}
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		parts := lo.Map(strings.Split(line, "|"), func(p string, _ int) string {
			return strings.Trim(strings.TrimSpace(p), `"*`)
		})
		concept := Concept{Title: parts[0]}
		if len(parts) > 1 {
			concept.Subtitle = parts[1]
		}
		if len(parts) > 2 {
			concept.ImagePrompt = strings.Join(parts[2:], " ")
		}
		if isHeader(concept) {
			continue
		}
		if concept.Title == "" {
			continue
		}
		if len(parts) < 3 || concept.Subtitle == "" || concept.ImagePrompt == "" {
			draft.Issues = append(draft.Issues, fmt.Sprintf("line %d: filled missing fields", i+1))
		}
		draft.Concepts = append(draft.Concepts, fillConcept(concept, brief))
	}

	for len(draft.Concepts) < brief.Count {
		n := len(draft.Concepts) + 1
		draft.Issues = append(draft.Issues, fmt.Sprintf("concept %d: generated from brief", n))
		draft.Concepts = append(draft.Concepts, staticConcept(brief, n))
	}
	draft.Degraded = len(draft.Issues) > 0
	return draft
}

func isHeader(c Concept) bool {
	return strings.EqualFold(c.Title, "title") && strings.EqualFold(c.Subtitle, "subtitle")
}

func fillConcept(c Concept, brief Brief) Concept {
	if c.Subtitle == "" {
		c.Subtitle = coalesce(brief.Notes, brief.ProductName)
	}
	if c.ImagePrompt == "" {
		c.ImagePrompt = imagePrompt(brief, c.Title)
	}
	return c
}

func imagePrompt(brief Brief, scene string) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "professional product photo of %s", coalesce(brief.ProductName, "the product"))
	if scene != "" {
		fmt.Fprintf(sb, ", %s", scene)
	}
	if brief.Style != "" {
		fmt.Fprintf(sb, ", %s style", brief.Style)
	}
	sb.WriteString(", studio lighting, high detail")
	return sb.String()
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if nl := strings.Index(trimmed, "\n"); nl >= 0 {
		trimmed = trimmed[nl+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
