package category

import "sift/internal/core/normalize"

// Matcher flags which categories have at least one keyword inside a text
// It is immutable after construction and safe for concurrent use
type Matcher struct {
	ac    *automaton
	names []string
}

// NewMatcher compiles every keyword of t into one automaton
func NewMatcher(t Table) *Matcher {
	ac := newAutomaton()
	for id, c := range t.Categories {
		for _, kw := range c.Keywords {
			ac.add([]byte(normalize.Lower(kw)), id)
		}
	}
	ac.build()
	return &Matcher{ac: ac, names: t.Names()}
}

// Names returns category names in column order
func (m *Matcher) Names() []string { return m.names }

// Match returns one flag per category: true when any of its keywords is a
// case-insensitive substring of text
func (m *Matcher) Match(text string) []bool {
	return m.MatchInto(make([]bool, len(m.names)), text)
}

// MatchInto is Match writing into dst, which must have one slot per category
func (m *Matcher) MatchInto(dst []bool, text string) []bool {
	clear(dst)
	if text == "" || len(m.names) == 0 {
		return dst
	}
	remaining := len(m.names)
	m.ac.scan(normalize.Lower(text), func(id int) bool {
		if !dst[id] {
			dst[id] = true
			remaining--
		}
		return remaining > 0
	})
	return dst
}
