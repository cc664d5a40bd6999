package static

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
)

// Selector sets match the markup variants the celebrity database has
// shipped over time.
const (
	rowSelector        = "tr.celebrity, tr.person, div.celebrity, div.person"
	nameSelector       = "a.name, a.person-name, span.name, span.person-name"
	typeSelector       = "span.type, span.sociotype, span.mbti, div.type, div.sociotype, div.mbti"
	confidenceSelector = "span.confidence, span.votes, div.confidence, div.votes"
)

var numberPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// parseListing extracts (name, type, confidence, evidence) tuples from
// the static listing markup. Rows missing a name or a type are skipped.
func parseListing(body []byte, sourceURL string) ([]scrape.ExtractionResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var results []scrape.ExtractionResult
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		name := textOfFirst(row, nameSelector)
		typeCode := textOfFirst(row, typeSelector)
		if name == "" || typeCode == "" {
			return
		}
		r := scrape.ExtractionResult{
			Name:       name,
			TypeCode:   typeCode,
			Confidence: parseConfidence(textOfFirst(row, confidenceSelector)),
			Evidence:   fmt.Sprintf("Scraped from %s", sourceURL),
		}
		if href, ok := row.Find(nameSelector).First().Attr("href"); ok {
			r.ProfileURL = href
		}
		results = append(results, r)
	})
	return results, nil
}

func textOfFirst(row *goquery.Selection, selector string) string {
	sel := row.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return trimText(sel.Text())
}

// parseConfidence pulls the first number out of text like "85%" or
// "0.85" and normalizes it to [0,1]. Returns nil when no number exists.
func parseConfidence(text string) *float64 {
	match := numberPattern.FindString(text)
	if match == "" {
		return nil
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	if val > 1 {
		val /= 100
	}
	if val < 0 || val > 1 {
		return nil
	}
	return &val
}

func trimText(s string) string {
	return string(bytes.Join(bytes.Fields([]byte(s)), []byte(" ")))
}
