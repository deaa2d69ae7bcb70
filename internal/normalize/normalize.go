// Package normalize cleans raw article text before dedup and
// classification. Korean newswire copy carries bylines, photo captions,
// bracketed agency tags and portal breadcrumbs that would otherwise leak
// into token sets and similarity scores.
package normalize

import (
	"html"
	"regexp"
	"strings"
)

const summaryRuneLimit = 300

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	bylineRe     = regexp.MustCompile(`^.*?(기자|특파원)\s*[=ㅣ]\s*`)
	dataCreditRe = regexp.MustCompile(`자료\s*=\s*\S+`)
	photoRe      = regexp.MustCompile(`/?\s*사진\s*=\s*\S+`)
	emailRe      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	bracketRe    = regexp.MustCompile(`[\[\(【〈][^\[\]\(\)【】〈〉]*[\]\)】〉]`)
	pipeByline   = regexp.MustCompile(`^[^|]{0,40}(기자|뉴스|미디어)\s*\|\s*`)
	breadcrumbRe = regexp.MustCompile(`^(홈|뉴스|산업|제약|바이오)(\s*>\s*\S+)+\s*`)
	spaceRe      = regexp.MustCompile(`\s+`)
	nonKeyRe     = regexp.MustCompile(`[^0-9A-Za-z가-힣]+`)
)

// Clean strips markup and editorial furniture from free text. It is
// idempotent: Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	s = html.UnescapeString(s)
	s = tagRe.ReplaceAllString(s, " ")
	s = bylineRe.ReplaceAllString(s, "")
	s = pipeByline.ReplaceAllString(s, "")
	s = breadcrumbRe.ReplaceAllString(s, "")
	s = dataCreditRe.ReplaceAllString(s, " ")
	s = photoRe.ReplaceAllString(s, " ")
	s = emailRe.ReplaceAllString(s, " ")
	s = stripBrackets(s)
	return collapseSpace(s)
}

// stripBrackets removes bracketed segments repeatedly so nested tags like
// [속보[종합]] disappear in full.
func stripBrackets(s string) string {
	for i := 0; i < 5; i++ {
		next := bracketRe.ReplaceAllString(s, " ")
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// TitleKey canonicalizes a title for exact-duplicate lookup: cleaned,
// lowercased, with every non-alphanumeric rune removed. Two syndicated
// copies of the same headline collapse to one key even when punctuation
// or spacing differs.
func TitleKey(title string) string {
	s := strings.ToLower(Clean(title))
	return nonKeyRe.ReplaceAllString(s, "")
}

// Summarize clips a cleaned body to a bounded summary on a rune boundary.
func Summarize(body string) string {
	s := Clean(body)
	r := []rune(s)
	if len(r) <= summaryRuneLimit {
		return s
	}
	return strings.TrimSpace(string(r[:summaryRuneLimit]))
}
