package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/sproutbook/seedscan/internal/rules"
)

var (
	ogTitleRe  = regexp.MustCompile(`(?is)<meta[^>]+property\s*=\s*["']og:title["'][^>]*content\s*=\s*["']([^"']+)["']`)
	ogTitleRe2 = regexp.MustCompile(`(?is)<meta[^>]+content\s*=\s*["']([^"']+)["'][^>]*property\s*=\s*["']og:title["']`)
	h1Re       = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	docTitleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	innerTagRe = regexp.MustCompile(`<[^>]+>`)
)

// ExtractTitle returns the first usable product title from raw page
// HTML, trying og:title, then the first <h1> outside navigation/
// breadcrumb context, then the document <title> truncated at its first
// separator and stripped of vendor suffixes. Returns "" when nothing
// passes validation.
func ExtractTitle(doc string, r *rules.Rules) string {
	if m := ogTitleRe.FindStringSubmatch(doc); m != nil {
		if t := validTitle(m[1]); t != "" {
			return t
		}
	}
	if m := ogTitleRe2.FindStringSubmatch(doc); m != nil {
		if t := validTitle(m[1]); t != "" {
			return t
		}
	}

	for _, m := range h1Re.FindAllStringSubmatchIndex(doc, 5) {
		if inNavContext(doc, m[0]) {
			continue
		}
		inner := doc[m[2]:m[3]]
		if t := validTitle(innerTagRe.ReplaceAllString(inner, " ")); t != "" {
			return t
		}
	}

	if m := docTitleRe.FindStringSubmatch(doc); m != nil {
		if t := validTitle(truncateDocTitle(m[1], r)); t != "" {
			return t
		}
	}
	return ""
}

// validTitle cleans a candidate and rejects junk/generic strings and
// anything outside the shared name length window.
func validTitle(s string) string {
	s = cleanText(html.UnescapeString(s))
	if len(s) < minNameLen || len(s) > maxNameLen {
		return ""
	}
	if IsJunkTitle(s) || IsGenericTrap(s) {
		return ""
	}
	return s
}

// truncateDocTitle cuts a document title at its first pipe/dash
// separator and strips known vendor-name suffixes in order.
func truncateDocTitle(title string, r *rules.Rules) string {
	title = cleanText(html.UnescapeString(title))
	for _, sep := range []string{"|", " – ", " — ", " - "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
			break
		}
	}
	for _, pattern := range r.TitleSuffixes {
		re, err := regexp.Compile(`(?i)` + pattern)
		if err != nil {
			continue
		}
		title = re.ReplaceAllString(title, "")
	}
	return strings.TrimSpace(title)
}

var (
	navTagRe      = regexp.MustCompile(`(?is)<(/?)([a-z][a-z0-9]*)((?:[^>"']|"[^"]*"|'[^']*')*)>`)
	navAttrRe     = regexp.MustCompile(`(?i)(class|id)\s*=\s*["'][^"']*(breadcrumb|crumb|nav|menu|category|site-header)[^"']*["']`)
	voidTags      = map[string]struct{}{"img": {}, "br": {}, "meta": {}, "link": {}, "input": {}, "hr": {}, "source": {}}
	blockNavNames = map[string]struct{}{"nav": {}, "header": {}}
)

// inNavContext reports whether the position sits inside an unclosed
// navigation/header/breadcrumb element. It scans the tags preceding pos,
// tracking unclosed block elements, then checks their names and
// class/id attributes against breadcrumb patterns.
func inNavContext(doc string, pos int) bool {
	type openTag struct {
		name  string
		attrs string
	}
	var stack []openTag

	for _, m := range navTagRe.FindAllStringSubmatchIndex(doc[:pos], -1) {
		closing := m[3] > m[2] // "/" present
		name := strings.ToLower(doc[m[4]:m[5]])
		if _, void := voidTags[name]; void {
			continue
		}
		if closing {
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].name == name {
					stack = stack[:i]
					break
				}
			}
			continue
		}
		attrs := ""
		if m[6] >= 0 {
			attrs = doc[m[6]:m[7]]
		}
		if strings.HasSuffix(attrs, "/") {
			continue // self-closing
		}
		stack = append(stack, openTag{name: name, attrs: attrs})
	}

	for _, t := range stack {
		if _, nav := blockNavNames[t.name]; nav {
			return true
		}
		if navAttrRe.MatchString(t.attrs) {
			return true
		}
	}
	return false
}
