package cell

import (
	"fmt"
	"sync/atomic"
)

// genPrefix is the prefix of generated package names. It keeps generated
// names out of the way of anything a user would plausibly type.
const genPrefix = "nbc"

// Namer hands out package names unique within one compilation session.
type Namer struct {
	next atomic.Uint64
}

// NewNamer creates a session namer starting at 1.
func NewNamer() *Namer {
	return &Namer{}
}

// Next returns a fresh generated name.
func (n *Namer) Next() string {
	return fmt.Sprintf("%s%d", genPrefix, n.next.Add(1))
}

// Fresh returns a fresh name with an extra tag, used for throwaway probe
// cells that must not collide with anything in scope.
func (n *Namer) Fresh(tag string) string {
	return fmt.Sprintf("%s%d_%s", genPrefix, n.next.Add(1), tag)
}
