package http

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxTitleRunes caps extracted titles.
const MaxTitleRunes = 200

// ExtractTitle returns the text of the first <title> element with whitespace
// runs collapsed to single spaces. ok is false when there is no title or it
// is blank.
func ExtractTitle(body string) (string, bool) {
	if body == "" {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return "", false
	}
	t := CleanTitle(sel.Text())
	return t, t != ""
}

// CleanTitle collapses whitespace, trims, and caps the result at MaxTitleRunes.
func CleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > MaxTitleRunes {
		s = strings.TrimSpace(string(r[:MaxTitleRunes]))
	}
	return s
}
