package extractor

import (
	"regexp"
	"strings"

	"github.com/use-agent/plexport/models"
)

// labelPattern splits an accessible label into title and year. Accepted forms:
//
//	Title, 1999
//	Title 1999
//	Title (1999)
//
// The title is matched lazily, so the first 4-digit group that ends the label
// (or is followed by ")") is taken as the year. Titles that themselves carry a
// trailing 4-digit number are split there; that is the documented behavior.
//
// Separators accept Unicode spaces (NBSP, thin space, ...) as well as ASCII
// whitespace; RE2's \s alone is ASCII only.
var labelPattern = regexp.MustCompile(`^(.*?)(?:,` + space + `*|` + space + `+\(?)(\d{4})(?:\)|$)`)

// space matches any whitespace character, including Unicode separators and BOM.
const space = `[\s\p{Z}\x{FEFF}]`

// ParseLabel extracts a MovieRecord from an aria-label value.
// ok is false when the label does not carry a title followed by a year.
func ParseLabel(label string) (rec models.MovieRecord, ok bool) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return models.MovieRecord{}, false
	}
	return models.MovieRecord{
		Title: strings.TrimSpace(m[1]),
		Year:  m[2],
	}, true
}
