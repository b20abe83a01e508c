// SPDX-License-Identifier: GPL-3.0-or-later

package padial

import (
	"fmt"
	"os"
	"strconv"
)

// Well-known property keys enriched into the client proplist at
// SET_CLIENT_NAME time for peers at protocol version >= 13 (spec.md §4.5).
const (
	PropApplicationName      = "application.name"
	PropApplicationProcessID = "application.process.id"
	PropApplicationProcessBinary = "application.process.binary"
	PropApplicationProcessUser  = "application.process.user"
	PropApplicationProcessHost  = "application.process.host"
)

// ProplistUpdateMode selects how [*Context.ProplistUpdate] merges new
// entries into the server's copy of the proplist (spec.md §6.1).
type ProplistUpdateMode int

const (
	// ProplistUpdateSet replaces the server's proplist with the given one.
	ProplistUpdateSet ProplistUpdateMode = iota

	// ProplistUpdateMerge overlays the given entries on top of the
	// server's existing proplist, keeping keys not present in the update.
	ProplistUpdateMerge

	// ProplistUpdateReplace is an alias spec.md's original uses
	// interchangeably with Merge in some call sites; kept distinct here
	// only because the wire command distinguishes them (spec.md §6.1's
	// {set, merge, replace} triple).
	ProplistUpdateReplace
)

// Proplist is an ordered string-keyed property list (spec.md §3's "owned
// copy" on [Context]). The data-type's full generality (binary values,
// server-side semantics beyond this client's surface) is out of scope
// (spec.md §1); this narrow string-only carrier exists solely to support
// [*Context]'s public proplist operations and the enriched
// SET_CLIENT_NAME payload.
type Proplist struct {
	order []string
	data  map[string]string
}

// NewProplist returns an empty [*Proplist].
func NewProplist() *Proplist {
	return &Proplist{data: make(map[string]string)}
}

// Clone returns a deep, independent copy.
func (p *Proplist) Clone() *Proplist {
	out := NewProplist()
	for _, k := range p.order {
		out.Set(k, p.data[k])
	}
	return out
}

// Set inserts or overwrites a single key, preserving first-insertion
// order for stable iteration (and stable wire encoding) via [*Proplist.Keys].
func (p *Proplist) Set(key, value string) {
	if _, ok := p.data[key]; !ok {
		p.order = append(p.order, key)
	}
	p.data[key] = value
}

// Get returns the value for key and whether it was present.
func (p *Proplist) Get(key string) (string, bool) {
	v, ok := p.data[key]
	return v, ok
}

// Remove deletes the given keys, if present. Unknown keys are ignored.
func (p *Proplist) Remove(keys []string) {
	for _, k := range keys {
		if _, ok := p.data[k]; !ok {
			continue
		}
		delete(p.data, k)
		for i, existing := range p.order {
			if existing == k {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
}

// Merge overlays other's entries on top of p, keeping p's own keys that
// other does not set.
func (p *Proplist) Merge(other *Proplist) {
	for _, k := range other.order {
		p.Set(k, other.data[k])
	}
}

// Keys returns the property keys in insertion order.
func (p *Proplist) Keys() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len reports the number of entries.
func (p *Proplist) Len() int {
	return len(p.order)
}

// EnrichProplist returns a copy of p with the standard
// process/host/application entries set (spec.md §4.5: "the full property
// list (enriched with standard process/host/app entries)"), overwriting
// any pre-existing values for those keys.
func EnrichProplist(p *Proplist, appName string) *Proplist {
	out := p.Clone()
	out.Set(PropApplicationName, appName)
	out.Set(PropApplicationProcessID, strconv.Itoa(os.Getpid()))
	out.Set(PropApplicationProcessBinary, processBinary())
	out.Set(PropApplicationProcessUser, processUser())
	if host, err := os.Hostname(); err == nil {
		out.Set(PropApplicationProcessHost, host)
	}
	return out
}

func processBinary() string {
	if len(os.Args) > 0 {
		return os.Args[0]
	}
	return ""
}

func processUser() string {
	if uid := os.Getuid(); uid >= 0 {
		return fmt.Sprintf("uid:%d", uid)
	}
	return ""
}
