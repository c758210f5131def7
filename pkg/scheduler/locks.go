package scheduler

import (
	"slices"
	"sync"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// triggerLocks serializes read-modify-write cycles on individual triggers.
// Entries live only while someone holds or waits for them.
type triggerLocks struct {
	mu    sync.Mutex
	locks map[core.TriggerKey]*triggerLock
}

type triggerLock struct {
	sync.Mutex
	refs int
}

// lock acquires the locks of keys in key order and returns the matching
// unlock. Duplicate keys are locked once.
func (l *triggerLocks) lock(keys ...core.TriggerKey) (unlock func()) {
	keys = slices.Clone(keys)
	slices.SortFunc(keys, func(a, b core.TriggerKey) int { return core.Compare(a.Key, b.Key) })
	keys = slices.Compact(keys)

	held := make([]*triggerLock, 0, len(keys))
	for _, k := range keys {
		tl := l.ref(k)
		tl.Lock()
		held = append(held, tl)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.unref(keys[i])
		}
	}
}

func (l *triggerLocks) ref(key core.TriggerKey) *triggerLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[core.TriggerKey]*triggerLock)
	}
	tl, ok := l.locks[key]
	if !ok {
		tl = &triggerLock{}
		l.locks[key] = tl
	}
	tl.refs++
	return tl
}

func (l *triggerLocks) unref(key core.TriggerKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl := l.locks[key]
	tl.refs--
	if tl.refs == 0 {
		delete(l.locks, key)
	}
}
