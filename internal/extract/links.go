// Package extract finds unsubscribe endpoints in a message's headers and body.
package extract

import (
	"html"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mailsweep/internal/model"
)

var (
	headerToken = regexp.MustCompile(`<([^>]*)>`)

	bodyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)https?://[^\s<>"]+unsubscribe[^\s<>"]*`),
		regexp.MustCompile(`(?i)https?://[^\s<>"]+opt[_-]?out[^\s<>"]*`),
		regexp.MustCompile(`(?i)https?://[^\s<>"]+remove[^\s<>"]*`),
		regexp.MustCompile(`(?i)href=["']([^"']*unsubscribe[^"']*)["']`),
		regexp.MustCompile(`(?i)href=["']([^"']*opt[_-]?out[^"']*)["']`),
	}

	anchorText = regexp.MustCompile(`(?i)unsubscribe|opt[\s_-]?out`)
)

// Links holds the usable (http-prefixed) candidates found in a message, split by
// where they were found. Both slices are sorted and free of duplicates.
type Links struct {
	Header []string
	Body   []string
}

// All returns the sorted union of header and body links.
func (l Links) All() []string {
	return dedupeSorted(append(append([]string{}, l.Header...), l.Body...))
}

// Len is the number of distinct links.
func (l Links) Len() int { return len(l.All()) }

// Best picks the link to invoke: a List-Unsubscribe link when there is one,
// otherwise the first body link. Returns "" when nothing was found.
func (l Links) Best() string {
	if len(l.Header) > 0 {
		return l.Header[0]
	}
	if len(l.Body) > 0 {
		return l.Body[0]
	}
	return ""
}

// FromMessage extracts unsubscribe candidates from the List-Unsubscribe
// headers and the flattened text of msg.
func FromMessage(msg *model.Message) Links {
	if msg == nil {
		return Links{}
	}
	var header []string
	for _, v := range msg.Headers.Values("List-Unsubscribe") {
		header = append(header, HeaderTokens(v)...)
	}

	body := FromText(FlattenText(msg.Payload))
	for _, doc := range HTMLParts(msg.Payload) {
		body = append(body, fromAnchors(doc)...)
	}

	return Links{
		Header: clean(header),
		Body:   clean(body),
	}
}

// HeaderTokens returns every angle-bracket token of a List-Unsubscribe value,
// including mailto: targets.
func HeaderTokens(value string) []string {
	var out []string
	for _, m := range headerToken.FindAllStringSubmatch(value, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// FromText applies the unsubscribe patterns to text and returns the raw matches,
// HTML-unescaped.
func FromText(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, re := range bodyPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			match := m[0]
			if len(m) > 1 {
				match = m[1]
			}
			out = append(out, html.UnescapeString(match))
		}
	}
	return out
}

// fromAnchors returns the href of every <a> whose visible text mentions
// unsubscribing, for links whose URL does not say so itself.
func fromAnchors(doc string) []string {
	if !anchorText.MatchString(doc) {
		return nil
	}
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil
	}
	var out []string
	d.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if !anchorText.MatchString(s.Text()) {
			return
		}
		if href, ok := s.Attr("href"); ok {
			out = append(out, strings.TrimSpace(href))
		}
	})
	return out
}

// clean strips angle brackets, drops anything that is not http-prefixed and
// returns the distinct remainder in sorted order.
func clean(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.Trim(c, "<>")
		if !strings.HasPrefix(c, "http") {
			continue
		}
		out = append(out, c)
	}
	return dedupeSorted(out)
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
