// Package extractor pulls the raw balance token out of an explorer page.
//
// Extraction is pure: no network access, no retries, no numeric validation.
// A cell whose text is not a number is still returned; deciding what it
// means is left to the caller.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultLabel is the token label tracked on the explorer's balance table.
const DefaultLabel = "SATORI"

// Extractor turns page content into a raw value token.
// found is false when the page has no entry for the tracked token.
type Extractor interface {
	Extract(page string) (token string, found bool)
}

// Func adapts an ordinary function to the Extractor interface.
type Func func(page string) (string, bool)

// Extract calls f(page).
func (f Func) Extract(page string) (string, bool) {
	return f(page)
}

// LabelExtractor finds a text node equal to Label and returns the text of
// the first table cell that follows it in document order.
type LabelExtractor struct {
	Label string
}

// NewLabelExtractor creates a LabelExtractor, falling back to DefaultLabel.
func NewLabelExtractor(label string) *LabelExtractor {
	if label == "" {
		label = DefaultLabel
	}
	return &LabelExtractor{Label: label}
}

// Extract implements Extractor.
func (e *LabelExtractor) Extract(page string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil || len(doc.Nodes) == 0 {
		return "", false
	}

	cell := cellAfterLabel(doc.Nodes[0], e.Label)
	if cell == nil {
		return "", false
	}

	return strings.TrimSpace(goquery.NewDocumentFromNode(cell).Text()), true
}

// cellAfterLabel walks the tree in document order. Cells that enclose the
// label are visited before it and therefore never match.
func cellAfterLabel(root *html.Node, label string) *html.Node {
	seen := false
	var cell *html.Node

	var visit func(n *html.Node) bool
	visit = func(n *html.Node) bool {
		switch {
		case seen && n.Type == html.ElementNode && n.Data == "td":
			cell = n
			return true
		case !seen && n.Type == html.TextNode && strings.TrimSpace(n.Data) == label:
			seen = true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if visit(c) {
				return true
			}
		}
		return false
	}
	visit(root)

	return cell
}
