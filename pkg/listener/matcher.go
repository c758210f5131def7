package listener

import (
	"strings"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// Keyed is satisfied by core.JobKey and core.TriggerKey.
type Keyed interface {
	comparable
	Name() string
	Group() string
}

// Matcher selects the keys a listener is notified about.
type Matcher[K Keyed] interface {
	IsMatch(key K) bool
}

type everything[K Keyed] struct{}

func (everything[K]) IsMatch(K) bool { return true }

// Everything matches every key.
func Everything[K Keyed]() Matcher[K] { return everything[K]{} }

// AllJobs matches every job.
func AllJobs() Matcher[core.JobKey] { return everything[core.JobKey]{} }

// AllTriggers matches every trigger.
func AllTriggers() Matcher[core.TriggerKey] { return everything[core.TriggerKey]{} }

type keyEquals[K Keyed] struct{ key K }

func (m keyEquals[K]) IsMatch(k K) bool { return k == m.key }

// KeyEquals matches exactly key.
func KeyEquals[K Keyed](key K) Matcher[K] { return keyEquals[K]{key: key} }

type stringOp int

const (
	opEquals stringOp = iota
	opStartsWith
	opEndsWith
	opContains
)

func (op stringOp) eval(s, v string) bool {
	switch op {
	case opEquals:
		return s == v
	case opStartsWith:
		return strings.HasPrefix(s, v)
	case opEndsWith:
		return strings.HasSuffix(s, v)
	case opContains:
		return strings.Contains(s, v)
	}
	return false
}

type groupMatcher[K Keyed] struct {
	op    stringOp
	value string
}

func (m groupMatcher[K]) IsMatch(k K) bool { return m.op.eval(k.Group(), m.value) }

type nameMatcher[K Keyed] struct {
	op    stringOp
	value string
}

func (m nameMatcher[K]) IsMatch(k K) bool { return m.op.eval(k.Name(), m.value) }

// GroupEquals matches keys in group.
func GroupEquals[K Keyed](group string) Matcher[K] {
	return groupMatcher[K]{op: opEquals, value: group}
}

// GroupStartsWith matches keys whose group has the given prefix.
func GroupStartsWith[K Keyed](prefix string) Matcher[K] {
	return groupMatcher[K]{op: opStartsWith, value: prefix}
}

// GroupEndsWith matches keys whose group has the given suffix.
func GroupEndsWith[K Keyed](suffix string) Matcher[K] {
	return groupMatcher[K]{op: opEndsWith, value: suffix}
}

// GroupContains matches keys whose group contains s.
func GroupContains[K Keyed](s string) Matcher[K] {
	return groupMatcher[K]{op: opContains, value: s}
}

// NameEquals matches keys with the given name in any group.
func NameEquals[K Keyed](name string) Matcher[K] {
	return nameMatcher[K]{op: opEquals, value: name}
}

// NameStartsWith matches keys whose name has the given prefix.
func NameStartsWith[K Keyed](prefix string) Matcher[K] {
	return nameMatcher[K]{op: opStartsWith, value: prefix}
}

type orMatcher[K Keyed] struct{ ms []Matcher[K] }

func (m orMatcher[K]) IsMatch(k K) bool {
	for _, x := range m.ms {
		if x.IsMatch(k) {
			return true
		}
	}
	return false
}

// Or matches keys that any of ms matches.
func Or[K Keyed](ms ...Matcher[K]) Matcher[K] { return orMatcher[K]{ms: ms} }

type andMatcher[K Keyed] struct{ ms []Matcher[K] }

func (m andMatcher[K]) IsMatch(k K) bool {
	for _, x := range m.ms {
		if !x.IsMatch(k) {
			return false
		}
	}
	return true
}

// And matches keys that all of ms match.
func And[K Keyed](ms ...Matcher[K]) Matcher[K] { return andMatcher[K]{ms: ms} }

type notMatcher[K Keyed] struct{ m Matcher[K] }

func (m notMatcher[K]) IsMatch(k K) bool { return !m.m.IsMatch(k) }

// Not inverts m.
func Not[K Keyed](m Matcher[K]) Matcher[K] { return notMatcher[K]{m: m} }

func anyMatch[K Keyed](ms []Matcher[K], k K) bool {
	for _, m := range ms {
		if m.IsMatch(k) {
			return true
		}
	}
	return false
}
