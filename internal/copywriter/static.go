package copywriter

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var staticScenes = []string{
	"hero shot on a clean white background",
	"lifestyle scene in a bright modern home",
	"close-up detail with soft shadows",
	"flat lay with complementary props",
	"outdoor scene in golden hour light",
	"minimal pedestal display with pastel backdrop",
}

var staticAngles = []string{
	"Everyday Essential",
	"Made to Last",
	"Details That Matter",
	"Your New Favorite",
	"Ready for Anything",
	"Simply Better",
}

// StaticWriter builds concepts from the brief without calling a model.
type StaticWriter struct{}

func NewStaticWriter() *StaticWriter {
	return &StaticWriter{}
}

func (s *StaticWriter) Draft(ctx context.Context, brief Brief) (*Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	brief = brief.Normalized()
	draft := &Draft{
		Provider: providerStatic,
		Metadata: map[string]string{"locale": brief.Locale},
	}
	for i := 1; i <= brief.Count; i++ {
		draft.Concepts = append(draft.Concepts, staticConcept(brief, i))
	}
	return draft, nil
}

func staticConcept(brief Brief, n int) Concept {
	caser := cases.Title(titleLanguage(brief.Locale))
	product := caser.String(coalesce(brief.ProductName, "product"))
	idx := (n - 1) % len(staticScenes)
	return Concept{
		Title:       fmt.Sprintf("%s: %s", product, staticAngles[idx]),
		Subtitle:    coalesce(brief.Notes, fmt.Sprintf("Discover %s", product)),
		ImagePrompt: imagePrompt(brief, staticScenes[idx]),
	}
}

func titleLanguage(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.Und
	}
	return tag
}

var _ Writer = (*StaticWriter)(nil)
