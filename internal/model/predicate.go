// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Predicate is the evaluated form of a tag expression (spec.md §4.2's
// AqlExpression, after parsing): something that can say whether an event's
// tag set matches. The AQL engine builds these; the event store only ever
// evaluates them, so the store has no dependency on the parser.
type Predicate interface {
	Match(tags TagSet) bool
}

// TagPredicate matches events carrying a single literal tag.
type TagPredicate struct {
	Tag string
}

func (p TagPredicate) Match(tags TagSet) bool { return tags.Contains(p.Tag) }

// AndPredicate matches when every child predicate matches.
type AndPredicate struct {
	Of []Predicate
}

func (p AndPredicate) Match(tags TagSet) bool {
	for _, c := range p.Of {
		if !c.Match(tags) {
			return false
		}
	}
	return true
}

// OrPredicate matches when any child predicate matches.
type OrPredicate struct {
	Of []Predicate
}

func (p OrPredicate) Match(tags TagSet) bool {
	for _, c := range p.Of {
		if c.Match(tags) {
			return true
		}
	}
	return false
}

// AllEventsPredicate matches every event, used for "FROM allEvents".
type AllEventsPredicate struct{}

func (AllEventsPredicate) Match(TagSet) bool { return true }

// RelevantTags returns the set of literal tags a predicate could possibly
// need: an event whose tags include none of them cannot satisfy the
// predicate, so the set can serve as a cheap pre-filter ahead of Match.
// Nothing in the event store or subscriber registry calls it; they
// evaluate Match directly.
// A nil return means "cannot be narrowed", i.e. Match must always be tried.
func RelevantTags(p Predicate) []string {
	switch v := p.(type) {
	case TagPredicate:
		return []string{v.Tag}
	case AndPredicate:
		// An AND needs every tag it references to be worth attempting, but a
		// single leaf is sufficient for the coarse pre-filter: if none of the
		// leaf tags appear on the event, no AND branch beneath it could match.
		var out []string
		for _, c := range v.Of {
			out = append(out, RelevantTags(c)...)
		}
		return out
	case OrPredicate:
		var out []string
		for _, c := range v.Of {
			sub := RelevantTags(c)
			if sub == nil {
				return nil
			}
			out = append(out, sub...)
		}
		return out
	default:
		return nil
	}
}
