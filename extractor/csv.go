package extractor

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/use-agent/plexport/models"
)

// bom marks the file as UTF-8 for spreadsheet tools.
const bom = "\uFEFF"

const csvHeader = "Title,Year"

// SortRecords sorts records in place by title using the collation rules of
// tag, then by year.
func SortRecords(records []models.MovieRecord, tag language.Tag) {
	c := collate.New(tag)
	slices.SortStableFunc(records, func(a, b models.MovieRecord) int {
		if r := c.CompareString(a.Title, b.Title); r != 0 {
			return r
		}
		return cmp.Compare(a.Year, b.Year)
	})
}

// BuildCSV renders records, in the given order, as BOM + header + one row per
// record. Titles are always quoted with embedded quotes doubled; rows are
// joined by "\n" without a trailing newline.
func BuildCSV(records []models.MovieRecord) []byte {
	var b strings.Builder
	b.WriteString(bom)
	b.WriteString(csvHeader)
	b.WriteByte('\n')
	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(rec.Title, `"`, `""`))
		b.WriteString(`",`)
		b.WriteString(rec.Year)
	}
	return []byte(b.String())
}

var timestampReplacer = strings.NewReplacer(":", "-", ".", "-")

// Filename returns plex_movies_<count>_<timestamp>.csv, where timestamp is
// the ISO 8601 UTC time with millisecond precision and ':' and '.' replaced by '-'.
func Filename(count int, at time.Time) string {
	ts := at.UTC().Format("2006-01-02T15:04:05.000Z")
	return fmt.Sprintf("plex_movies_%d_%s.csv", count, timestampReplacer.Replace(ts))
}
