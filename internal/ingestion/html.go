package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// block-level elements that start a new line in the extracted text
var htmlBlockElements = "p, div, li, h1, h2, h3, h4, h5, h6, tr, section, article, header, footer, br"

// ExtractHTML extracts visible text from an HTML resume (for example one saved from a profile page)
func ExtractHTML(_ context.Context, data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, noscript, template, svg, head").Remove()
	doc.Find(htmlBlockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("• ")
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	return CleanText(strings.TrimSpace(body.Text())), nil
}
