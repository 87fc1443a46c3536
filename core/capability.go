package core

import (
	"fmt"
	"strings"
)

// A Capability is one thing a user can be allowed to do on a node and its
// descendants.
type Capability int

const (
	Add     Capability = 1 << iota // create child nodes
	Change                         // edit the node and its descendants
	Delete                         // delete descendant nodes
	Publish                        // request publication
)

func (c Capability) String() string {
	switch c {
	case Add:
		return "add"
	case Change:
		return "change"
	case Delete:
		return "delete"
	case Publish:
		return "publish"
	}
	return "unknown"
}

// A CapabilitySet is a bitwise combination of capabilities, granted together
// on a subtree.
type CapabilitySet int

const AllCapabilities CapabilitySet = CapabilitySet(Add | Change | Delete | Publish)

func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

func (s CapabilitySet) Valid() bool {
	return s >= 0 && s <= AllCapabilities
}

func (s CapabilitySet) String() string {
	var names []string
	for _, c := range []Capability{Add, Change, Delete, Publish} {
		if s.Has(c) {
			names = append(names, c.String())
		}
	}
	return strings.Join(names, ",")
}

// ParseCapabilitySet reads a comma-separated list of capability names, as
// written by CapabilitySet.String.
func ParseCapabilitySet(str string) (CapabilitySet, error) {
	var s CapabilitySet
	for _, name := range strings.Split(str, ",") {
		switch strings.TrimSpace(name) {
		case "":
			continue
		case "add":
			s |= CapabilitySet(Add)
		case "change":
			s |= CapabilitySet(Change)
		case "delete":
			s |= CapabilitySet(Delete)
		case "publish":
			s |= CapabilitySet(Publish)
		default:
			return 0, fmt.Errorf("unknown capability %s", name)
		}
	}
	return s, nil
}
