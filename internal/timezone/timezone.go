// Package timezone maps free-form timezone text to canonical IANA zone names.
//
// The alias table is built once from zoneNames and never mutated afterwards, so a
// single Resolver is shared by every request without locking.
package timezone

import (
	"strings"
	"sync"
	"time"

	// Embeds the IANA database so resolution does not depend on the host's zoneinfo.
	_ "time/tzdata"
)

// Default is the zone used for accounts that never declared one.
const Default = "UTC"

// Resolver resolves user-supplied zone text against a fixed alias table.
type Resolver struct {
	aliases   map[string]string
	locations map[string]*time.Location
}

var shared = sync.OnceValue(func() *Resolver { return New(zoneNames) })

// Shared returns the process-wide resolver over the built-in zone list.
func Shared() *Resolver {
	return shared()
}

// New builds a resolver for the given canonical zone names. Names that the
// runtime cannot load are skipped. Full-name aliases always take precedence over
// bare-city aliases; among cities, the first name in the list wins.
func New(names []string) *Resolver {
	r := &Resolver{
		aliases:   make(map[string]string, len(names)*3),
		locations: make(map[string]*time.Location, len(names)),
	}

	for _, name := range names {
		loc, err := time.LoadLocation(name)
		if err != nil {
			continue
		}
		r.locations[name] = loc

		full := Normalize(name)
		r.aliases[full] = name
		r.aliases[strings.ReplaceAll(full, "/", "_")] = name
	}

	for _, name := range names {
		if _, ok := r.locations[name]; !ok {
			continue
		}
		i := strings.LastIndex(name, "/")
		if i < 0 {
			continue
		}
		city := Normalize(name[i+1:])
		if _, taken := r.aliases[city]; !taken {
			r.aliases[city] = name
		}
	}

	return r
}

// Normalize lowercases s, trims it and turns spaces and hyphens into underscores.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "-", "_")
}

// Resolve returns the canonical zone for raw, or false when nothing matches.
// There is no fuzzy fallback.
func (r *Resolver) Resolve(raw string) (string, bool) {
	key := Normalize(raw)
	if key == "" {
		return "", false
	}
	name, ok := r.aliases[key]
	return name, ok
}

// Location returns the loaded location for a canonical zone name. An empty
// name means Default.
func (r *Resolver) Location(name string) (*time.Location, error) {
	if name == "" {
		name = Default
	}
	if loc, ok := r.locations[name]; ok {
		return loc, nil
	}
	// Names stored before the table changed are still honoured if the runtime knows them.
	return time.LoadLocation(name)
}

// Len reports how many canonical zones the resolver knows.
func (r *Resolver) Len() int {
	return len(r.locations)
}
