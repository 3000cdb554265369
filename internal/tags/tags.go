// Package tags defines the closed set of record domains and the title
// prefixes that mark a generic note as belonging to one of them.
package tags

import (
	"regexp"
	"strings"
)

// Domain identifies which record type owns a document.
type Domain string

const (
	Book        Domain = "book"
	Goal        Domain = "goal"
	Transaction Domain = "transaction"
	Journal     Domain = "journal"
	Meditation  Domain = "meditation"
	Detox       Domain = "detox"

	// Note is the untagged domain: plain user notes carry no prefix.
	Note Domain = "note"
)

type entry struct {
	tag    string
	domain Domain
}

// Registry is an ordered tag → domain mapping. The zero value is empty;
// use Default for the dashboard's six domains.
type Registry struct {
	entries []entry
	byName  map[Domain]string
	exclude *regexp.Regexp
}

// Default returns the registry with the wire tags used by the dashboard.
func Default() *Registry {
	return New(
		"BOOK:", Book,
		"GOAL:", Goal,
		"FINANCE:", Transaction,
		"JOURNAL:", Journal,
		"MEDITATION:", Meditation,
		"DETOX:", Detox,
	)
}

// New builds a registry from alternating tag, domain pairs. It panics on a
// malformed list, a duplicate, or a tag that is a prefix of another one,
// since any of those would let two domains claim the same title.
func New(pairs ...any) *Registry {
	if len(pairs)%2 != 0 {
		panic("tags: odd number of registry arguments")
	}
	r := &Registry{byName: make(map[Domain]string, len(pairs)/2)}
	for i := 0; i < len(pairs); i += 2 {
		tag, ok1 := pairs[i].(string)
		d, ok2 := pairs[i+1].(Domain)
		if !ok1 || !ok2 || tag == "" || d == "" || d == Note {
			panic("tags: invalid registry entry")
		}
		if _, dup := r.byName[d]; dup {
			panic("tags: duplicate domain " + string(d))
		}
		for _, e := range r.entries {
			if strings.HasPrefix(e.tag, tag) || strings.HasPrefix(tag, e.tag) {
				panic("tags: overlapping tags " + e.tag + " and " + tag)
			}
		}
		r.entries = append(r.entries, entry{tag: tag, domain: d})
		r.byName[d] = tag
	}
	if len(r.entries) > 0 {
		r.exclude = regexp.MustCompile(r.ExclusionPattern())
	}
	return r
}

// PrefixFor returns the tag reserved for d, or "" for the untagged domain.
func (r *Registry) PrefixFor(d Domain) string {
	return r.byName[d]
}

// MatchesAny returns the domain whose tag title starts with.
// ok is false when no tag matches; such documents are plain notes.
func (r *Registry) MatchesAny(title string) (Domain, bool) {
	for _, e := range r.entries {
		if strings.HasPrefix(title, e.tag) {
			return e.domain, true
		}
	}
	return Note, false
}

// Classify is MatchesAny without the flag: it returns Note for untagged titles.
func (r *Registry) Classify(title string) Domain {
	d, _ := r.MatchesAny(title)
	return d
}

// Reserved reports whether title falls inside the reserved prefix space.
func (r *Registry) Reserved(title string) bool {
	return r.exclude != nil && r.exclude.MatchString(title)
}

// PrefixPattern returns the regular expression matching titles that start with tag.
func PrefixPattern(tag string) string {
	return "^" + regexp.QuoteMeta(tag)
}

// ExclusionPattern returns one pattern matching any registered tag at the
// start of a title. It is derived from the entries so it cannot drift.
// An empty registry yields "".
func (r *Registry) ExclusionPattern() string {
	if len(r.entries) == 0 {
		return ""
	}
	quoted := make([]string, len(r.entries))
	for i, e := range r.entries {
		quoted[i] = regexp.QuoteMeta(e.tag)
	}
	return "^(" + strings.Join(quoted, "|") + ")"
}

// Domains returns the registered domains in registry order.
func (r *Registry) Domains() []Domain {
	out := make([]Domain, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.domain
	}
	return out
}

// Tags returns the registered tags in registry order.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.tag
	}
	return out
}

// ParseDomain resolves a domain name as used in URLs and tool arguments.
func ParseDomain(s string) (Domain, bool) {
	switch d := Domain(strings.ToLower(strings.TrimSpace(s))); d {
	case Book, Goal, Transaction, Journal, Meditation, Detox, Note:
		return d, true
	}
	return "", false
}
