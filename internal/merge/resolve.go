package merge

import (
	"github.com/johnharveymath/oxcovid19db/internal/gid"
)

// ParentMap assigns every identifier of a merge to the common ancestor it is
// aggregated onto.
type ParentMap map[gid.ID]gid.ID

// Resolve chooses a common ancestor for every identifier in left and right.
//
// Right identifiers are preferred as ancestors: first every left identifier
// nested under a right identifier is mapped to it. Right identifiers still
// unmapped are then mapped to the first left identifier they nest under. All
// remaining identifiers map to themselves. Traversal follows the order of the
// input slices and an assignment, once made, is never changed; a right
// identifier nested under an already mapped left identifier follows that left
// identifier's ancestor.
func Resolve(left, right []gid.ID) ParentMap {
	parent := make(ParentMap, len(left)+len(right))
	assign := func(id, p gid.ID) {
		if _, ok := parent[id]; !ok {
			parent[id] = p
		}
	}

	for _, l := range left {
		for _, r := range right {
			if l.Within(r) {
				assign(l, r)
				assign(r, r)
			}
		}
	}

	for _, r := range right {
		if _, ok := parent[r]; ok {
			continue
		}
		for _, l := range left {
			if !r.Within(l) {
				continue
			}
			if p, ok := parent[l]; ok {
				parent[r] = p
			} else {
				parent[l] = l
				parent[r] = l
			}
			break
		}
		assign(r, r)
	}

	for _, l := range left {
		assign(l, l)
	}
	return parent
}
