package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// labelAttr is the accessible label attribute used as the scraping signal.
const labelAttr = "aria-label"

// Scanner finds accessible labels in rendered HTML.
// The compiled selector is immutable and safe for concurrent use.
type Scanner struct {
	selector cascadia.Selector
}

// NewScanner compiles the CSS selector group that picks labelled elements.
func NewScanner(selector string) (*Scanner, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("compile label selector %q: %w", selector, err)
	}
	return &Scanner{selector: sel}, nil
}

// Labels returns the non-empty aria-label values of the matched elements in
// document order.
func (s *Scanner) Labels(rawHTML string) ([]string, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	var labels []string
	doc.FindMatcher(s.selector).Each(func(_ int, sel *goquery.Selection) {
		if label, ok := sel.Attr(labelAttr); ok && label != "" {
			labels = append(labels, label)
		}
	})
	return labels, nil
}

// Collect parses every label and adds the matches to set.
// It reports whether at least one new record was added.
func (s *Scanner) Collect(rawHTML string, set *RecordSet) (bool, error) {
	labels, err := s.Labels(rawHTML)
	if err != nil {
		return false, err
	}
	foundNew := false
	for _, label := range labels {
		rec, ok := ParseLabel(label)
		if !ok {
			continue
		}
		if set.Add(rec) {
			foundNew = true
		}
	}
	return foundNew, nil
}
