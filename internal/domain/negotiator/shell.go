package negotiator

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBrand is matched against frame titles.
const DefaultBrand = "bagcat"

// InspectFrame classifies a loaded proxied frame. It returns IssueProxy
// when the document is a proxy error page or the portal's own shell, and ""
// when it looks like the target. path is the frame's location path.
func InspectFrame(body io.Reader, path, brand string) (Issue, error) {
	if isShellPath(path) {
		return IssueProxy, nil
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse frame: %w", err)
	}

	if doc.Find("#errorTrace-wrapper").Length() > 0 || doc.Find("#fetchedURL").Length() > 0 {
		return IssueProxy, nil
	}
	if looksLikeShell(doc, brand) {
		return IssueProxy, nil
	}
	return "", nil
}

func isShellPath(path string) bool {
	switch strings.ToLower(path) {
	case "/", "/docs", "/docs/":
		return true
	}
	return false
}

func looksLikeShell(doc *goquery.Document, brand string) bool {
	if brand == "" {
		brand = DefaultBrand
	}
	title := strings.ToLower(doc.Find("title").First().Text())
	if strings.Contains(title, strings.ToLower(brand)) {
		return true
	}

	if doc.Find(`input[placeholder="Search games"]`).Length() == 0 {
		return false
	}
	popular := false
	doc.Find("h1,h2,h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		popular = strings.EqualFold(strings.TrimSpace(s.Text()), "popular")
		return !popular
	})
	return popular
}
