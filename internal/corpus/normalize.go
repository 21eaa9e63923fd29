package corpus

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalization is fixed per store. Line endings are always normalized to \n.
type Normalization struct {
	CaseFold           bool `json:"caseFold"`
	CollapseWhitespace bool `json:"collapseWhitespace"`
}

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Apply returns the normalized form of raw.
func (n Normalization) Apply(raw string) string {
	text := lineEndings.Replace(raw)
	if n.CollapseWhitespace {
		text = strings.Join(strings.Fields(text), " ")
	}
	if n.CaseFold {
		// cases.Caser is stateful, so one per call.
		text = cases.Fold().String(text)
	}
	return text
}
