package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

var supportedLocales = []language.Tag{
	language.English,
	language.Chinese,
	language.Spanish,
	language.German,
	language.French,
	language.Japanese,
	language.Indonesian,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// Locale stores the copy locale for the request: X-Locale wins, then
// Accept-Language, then fallback.
func Locale(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := detectLocale(r, fallback)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), localeKey, locale)))
		})
	}
}

func detectLocale(r *http.Request, fallback string) string {
	for _, header := range []string{r.Header.Get("X-Locale"), r.Header.Get("Accept-Language")} {
		if strings.TrimSpace(header) == "" {
			continue
		}
		tag, _, confidence := localeMatcher.Match(language.Make(firstLanguage(header)))
		if confidence == language.No {
			continue
		}
		base, _ := tag.Base()
		return base.String()
	}
	if fallback != "" {
		return fallback
	}
	return "en"
}

// firstLanguage picks the first entry of an Accept-Language style list.
func firstLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return strings.TrimSpace(header)
	}
	return tags[0].String()
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeKey).(string); ok {
		return v
	}
	return "en"
}
