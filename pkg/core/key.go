package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultGroup is the group assigned to keys created without one.
const DefaultGroup = "DEFAULT"

// Key identifies a job or trigger by name within a group.
// Keys are immutable values and safe to share.
type Key struct {
	name  string
	group string
}

// NewKey creates a key. An empty group selects DefaultGroup.
func NewKey(name, group string) (Key, error) {
	if strings.TrimSpace(name) == "" {
		return Key{}, ErrInvalidName
	}
	if group == "" {
		group = DefaultGroup
	} else if strings.TrimSpace(group) == "" {
		return Key{}, ErrInvalidGroup
	}
	return Key{name: name, group: group}, nil
}

// Name returns the key name.
func (k Key) Name() string { return k.name }

// Group returns the key group.
func (k Key) Group() string { return k.group }

// IsZero reports whether the key was never initialised.
func (k Key) IsZero() bool { return k.name == "" }

func (k Key) String() string {
	return k.group + "." + k.name
}

// Compare orders keys: the default group sorts before all others, then by group, then by name.
func Compare(a, b Key) int {
	aDefault := a.group == DefaultGroup
	bDefault := b.group == DefaultGroup
	if aDefault && !bDefault {
		return -1
	}
	if !aDefault && bDefault {
		return 1
	}
	if r := strings.Compare(a.group, b.group); r != 0 {
		return r
	}
	return strings.Compare(a.name, b.name)
}

// Less reports whether k sorts before other.
func (k Key) Less(other Key) bool {
	return Compare(k, other) < 0
}

// UniqueName returns a name that is unique within the given group.
func UniqueName(group string) string {
	if group == "" {
		group = DefaultGroup
	}
	groupID := uuid.NewMD5(uuid.Nil, []byte(group)).String()
	return fmt.Sprintf("%s-%s", groupID[24:], uuid.New().String())
}

// JobKey identifies a job.
type JobKey struct {
	Key
}

// NewJobKey creates a job key.
func NewJobKey(name, group string) (JobKey, error) {
	k, err := NewKey(name, group)
	if err != nil {
		return JobKey{}, err
	}
	return JobKey{Key: k}, nil
}

// TriggerKey identifies a trigger.
type TriggerKey struct {
	Key
}

// NewTriggerKey creates a trigger key.
func NewTriggerKey(name, group string) (TriggerKey, error) {
	k, err := NewKey(name, group)
	if err != nil {
		return TriggerKey{}, err
	}
	return TriggerKey{Key: k}, nil
}

// MustJobKey is like NewJobKey but panics on invalid input.
// Intended for package-level variables and tests.
func MustJobKey(name, group string) JobKey {
	k, err := NewJobKey(name, group)
	if err != nil {
		panic(err)
	}
	return k
}

// MustTriggerKey is like NewTriggerKey but panics on invalid input.
func MustTriggerKey(name, group string) TriggerKey {
	k, err := NewTriggerKey(name, group)
	if err != nil {
		panic(err)
	}
	return k
}
