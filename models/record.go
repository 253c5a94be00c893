package models

// MovieRecord is one title/year pair scraped from an accessible label.
type MovieRecord struct {
	Title string `json:"title"`
	Year  string `json:"year"`
}

// Key is the deduplication key of the record: title + "," + year.
func (r MovieRecord) Key() string {
	return r.Title + "," + r.Year
}
