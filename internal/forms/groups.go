package forms

import (
	"github.com/fbastos/demandboard/internal/types"
)

// Replica holds one repetition of a group's child values, keyed by
// child field id. Children missing from storage appear as "".
type Replica map[string]string

// GroupValues maps a group field id to its ordered replicas. This is
// the structured counterpart of the legacy "<childID>__<index>" key
// encoding still used by the persistence layer.
type GroupValues map[string][]Replica

// DecodeGroups splits a legacy key-encoded value map into plain
// (non-group) values and structured group replicas. Index gaps in the
// input collapse into empty child values; the resulting replica slices
// are always contiguous from 0. Keys that do not match any group child
// of the given fields stay in the plain map untouched.
func DecodeGroups(fields []types.FieldDefinition, values Values) (Values, GroupValues) {
	groups := make(GroupValues)
	claimed := make(map[string]bool)

	for i := range fields {
		f := &fields[i]
		if !f.IsGroup() {
			continue
		}
		maxIdx := -1
		for j := range f.Children {
			childID := f.Children[j].FieldID
			for key := range values {
				if idx, ok := replicaIndex(key, childID); ok {
					claimed[key] = true
					if idx > maxIdx {
						maxIdx = idx
					}
				}
			}
		}
		if maxIdx < 0 {
			continue
		}
		replicas := make([]Replica, maxIdx+1)
		for idx := 0; idx <= maxIdx; idx++ {
			rep := make(Replica, len(f.Children))
			for j := range f.Children {
				childID := f.Children[j].FieldID
				rep[childID] = values[ReplicaKey(childID, idx)]
			}
			replicas[idx] = rep
		}
		groups[f.FieldID] = replicas
	}

	plain := make(Values)
	for key, v := range values {
		if !claimed[key] {
			plain[key] = v
		}
	}
	return plain, groups
}

// EncodeGroups flattens structured group replicas back into the legacy
// keyed map, reindexing each group contiguously from 0.
func EncodeGroups(plain Values, groups GroupValues) Values {
	out := plain.Clone()
	for _, replicas := range groups {
		for idx, rep := range replicas {
			for childID, v := range rep {
				out[ReplicaKey(childID, idx)] = v
			}
		}
	}
	return out
}
