// Package parser extracts hashtags, wikilinks and a short preview from the
// free text of notes and journal entries.
package parser

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// PreviewLength is the rune length of Result.Preview.
const PreviewLength = 140

// Result holds what was found in a text.
type Result struct {
	Tags    []string
	Links   []string
	Preview string
}

// Parse scans text. It never fails; text without markup yields empty slices.
func Parse(text string) Result {
	return Result{
		Tags:    extractTags(text),
		Links:   extractLinks(text),
		Preview: preview(text, PreviewLength),
	}
}

// HasTag reports whether tag (with or without the leading #) appears,
// ignoring case.
func (r Result) HasTag(tag string) bool {
	tag = strings.TrimPrefix(tag, "#")
	return slices.ContainsFunc(r.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}

// extractLinks returns deduplicated wikilink targets. [[Target|Alias]] yields Target.
func extractLinks(text string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := []string{}
	for _, m := range matches {
		target, _, _ := strings.Cut(m[1], "|")
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

func extractTags(text string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		t := strings.ToLower(m[1])
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// preview collapses whitespace and cuts text to n runes, adding an ellipsis
// when something was cut.
func preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(flat) <= n {
		return flat
	}
	runes := []rune(flat)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
