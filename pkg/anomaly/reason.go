package anomaly

import (
	"encoding/json"
	"strings"
)

// Reason is the set of rules that flagged a point.
type Reason uint8

const (
	Diverged Reason = 1 << iota
	ExplicitMarker
	OutOfBounds
	Sentinel

	None Reason = 0
)

var reasonNames = []struct {
	r    Reason
	name string
}{
	{Diverged, "diverged"},
	{ExplicitMarker, "explicit_marker"},
	{OutOfBounds, "out_of_bounds"},
	{Sentinel, "sentinel"},
}

func (r Reason) Has(flag Reason) bool {
	return r&flag != 0
}

// Names lists the flags in r in a fixed order.
func (r Reason) Names() []string {
	names := []string{}
	for _, n := range reasonNames {
		if r.Has(n.r) {
			names = append(names, n.name)
		}
	}
	return names
}

func (r Reason) String() string {
	if r == None {
		return "none"
	}
	return strings.Join(r.Names(), "|")
}

func (r Reason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Names())
}

func (r *Reason) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*r = None
	for _, name := range names {
		for _, n := range reasonNames {
			if n.name == name {
				*r |= n.r
			}
		}
	}
	return nil
}
