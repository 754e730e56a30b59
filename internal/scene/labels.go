package scene

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// titleCase capitalizes free-form labels coming from the dataset. Casers keep
// state, so each call gets its own.
func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return cases.Title(language.Und).String(s)
}
