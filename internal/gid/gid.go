// Package gid handles hierarchical geographic identifiers of the form
// COUNTRY.REGION.SUBREGION_VERSION.
package gid

import (
	"sort"
	"strings"
)

// Sep joins the members of a composite identifier.
const Sep = "|"

// ID is a geographic identifier. Regions that the database reports as an
// array of gids are held as a composite ID whose members are joined by Sep,
// which keeps IDs comparable and usable as map keys.
type ID string

// Compose builds an ID from one or more member gids, preserving their order.
func Compose(members ...string) ID {
	return ID(strings.Join(members, Sep))
}

// Members returns the member gids of id. A plain ID has one member.
func (id ID) Members() []string {
	if id == "" {
		return nil
	}
	return strings.Split(string(id), Sep)
}

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Within reports whether every member of id lies at or below some member of
// ancestor.
func (id ID) Within(ancestor ID) bool {
	return Matches(id.Members(), ancestor.Members())
}

// Normalize strips the version suffix (everything from the first underscore)
// and appends a terminating dot, so that "GBR.1_1" becomes "GBR.1." and prefix
// comparison respects segment boundaries.
func Normalize(gid string) string {
	if i := strings.IndexByte(gid, '_'); i >= 0 {
		gid = gid[:i]
	}
	return gid + "."
}

// Matches reports whether every candidate gid starts with some ancestor gid
// after normalization. An empty candidate list matches trivially.
func Matches(candidates, ancestors []string) bool {
	norm := make([]string, len(ancestors))
	for i, a := range ancestors {
		norm[i] = Normalize(a)
	}
	for _, c := range candidates {
		nc := Normalize(c)
		found := false
		for _, a := range norm {
			if strings.HasPrefix(nc, a) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Distinct returns the distinct IDs of ids in order of first appearance.
func Distinct(ids []ID) []ID {
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Sorted returns a sorted copy of ids.
func Sorted(ids []ID) []ID {
	out := append([]ID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
