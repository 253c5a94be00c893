package extractor

import (
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/use-agent/plexport/models"
)

func TestBuildCSV_QuotesAndOrder(t *testing.T) {
	records := []models.MovieRecord{
		{Title: "Zeta", Year: "2001"},
		{Title: `A"B`, Year: "1999"},
	}
	SortRecords(records, language.English)

	got := string(BuildCSV(records))
	want := "\uFEFFTitle,Year\n\"A\"\"B\",1999\n\"Zeta\",2001"
	if got != want {
		t.Errorf("BuildCSV() = %q, want %q", got, want)
	}
}

func TestBuildCSV_Empty(t *testing.T) {
	got := string(BuildCSV(nil))
	want := "\uFEFFTitle,Year\n"
	if got != want {
		t.Errorf("BuildCSV(nil) = %q, want %q", got, want)
	}
}

func TestSortRecords_LocaleAware(t *testing.T) {
	records := []models.MovieRecord{
		{Title: "Zorro", Year: "1998"},
		{Title: "Beta", Year: "2000"},
		{Title: "Émile", Year: "2003"},
		{Title: "alpha", Year: "2001"},
		{Title: "Eve", Year: "2010"},
	}
	SortRecords(records, language.English)

	want := []string{"alpha", "Beta", "Émile", "Eve", "Zorro"}
	for i, title := range want {
		if records[i].Title != title {
			t.Errorf("records[%d] = %q, want %q (all: %v)", i, records[i].Title, title, records)
		}
	}
}

func TestSortRecords_SameTitleByYear(t *testing.T) {
	records := []models.MovieRecord{
		{Title: "Dune", Year: "2021"},
		{Title: "Dune", Year: "1984"},
	}
	SortRecords(records, language.English)
	if records[0].Year != "1984" || records[1].Year != "2021" {
		t.Errorf("same-title records not ordered by year: %v", records)
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 5, 14, 7, 9, 123_000_000, time.UTC)
	got := Filename(5, at)
	want := "plex_movies_5_2024-03-05T14-07-09-123Z.csv"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestFilename_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2024, 3, 5, 16, 7, 9, 0, loc)
	got := Filename(0, at)
	want := "plex_movies_0_2024-03-05T14-07-09-000Z.csv"
	if got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}
