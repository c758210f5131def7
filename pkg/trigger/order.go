package trigger

import (
	"slices"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// CompareFireTime orders triggers by next fire time, earliest first and
// triggers without one last. Ties go to the higher priority, then key order.
func CompareFireTime(a, b *Trigger) int {
	an, bn := a.nextFireTime, b.nextFireTime
	switch {
	case an.IsZero() && !bn.IsZero():
		return 1
	case !an.IsZero() && bn.IsZero():
		return -1
	case an.Before(bn):
		return -1
	case an.After(bn):
		return 1
	}
	if a.priority != b.priority {
		if a.priority > b.priority {
			return -1
		}
		return 1
	}
	return core.Compare(a.key.Key, b.key.Key)
}

// SortByFireTime sorts ts in place using CompareFireTime.
func SortByFireTime(ts []*Trigger) {
	slices.SortStableFunc(ts, CompareFireTime)
}
