package forms

import (
	"sort"
	"strconv"
	"strings"

	"github.com/fbastos/demandboard/internal/types"
)

// replicaSep joins a group-child field id and a zero-based replica
// index in the legacy key encoding, e.g. "telefone__2".
const replicaSep = "__"

// ReplicaKey returns the legacy storage key for one replica of a
// group-child field.
func ReplicaKey(childID string, index int) string {
	return childID + replicaSep + strconv.Itoa(index)
}

// replicaIndex parses key as "<childID>__<digits>". Malformed indices
// (signs, spaces, non-digits) are rejected, so stray keys never
// disturb replica detection.
func replicaIndex(key, childID string) (int, bool) {
	rest, ok := strings.CutPrefix(key, childID+replicaSep)
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DetectReplicaCount derives how many replicas of the group are present
// in the stored values: highest replica index across all children plus
// one. Externally supplied data may have index gaps; detection only
// cares about the maximum. With no replica keys at all, the group's
// default count applies (at least 1).
func DetectReplicaCount(group *types.FieldDefinition, values Values) int {
	maxIdx := -1
	for i := range group.Children {
		childID := group.Children[i].FieldID
		for key := range values {
			if idx, ok := replicaIndex(key, childID); ok && idx > maxIdx {
				maxIdx = idx
			}
		}
	}
	if maxIdx < 0 {
		if group.DefaultReplicaCount > 1 {
			return group.DefaultReplicaCount
		}
		return 1
	}
	return maxIdx + 1
}

// ChangeReplicaCount grows or shrinks the stored replicas of a group
// from oldCount to newCount and returns the new value map; the input is
// left untouched. Growing inserts empty values for the new indices
// without clobbering anything already present; shrinking deletes
// exactly the removed index range. Counts below 1 are clamped to 1 —
// a group can never be reduced to zero replicas here.
func ChangeReplicaCount(group *types.FieldDefinition, oldCount, newCount int, values Values) Values {
	if newCount < 1 {
		newCount = 1
	}
	out := values.Clone()
	switch {
	case newCount > oldCount:
		for i := range group.Children {
			for idx := oldCount; idx < newCount; idx++ {
				key := ReplicaKey(group.Children[i].FieldID, idx)
				if _, exists := out[key]; !exists {
					out[key] = ""
				}
			}
		}
	case newCount < oldCount:
		for i := range group.Children {
			for idx := newCount; idx < oldCount; idx++ {
				delete(out, ReplicaKey(group.Children[i].FieldID, idx))
			}
		}
	}
	return out
}

// InitializeReplicas seeds the working value map for a form.
//
// With prior values, replica counts are detected per group and the
// values pass through untouched (gaps and all). Without prior values,
// every non-group field is seeded empty and every group gets its
// default number of empty replicas.
func InitializeReplicas(fields []types.FieldDefinition, existing Values) (map[string]int, Values) {
	counts := make(map[string]int)

	if existing != nil {
		for i := range fields {
			if fields[i].IsGroup() {
				counts[fields[i].FieldID] = DetectReplicaCount(&fields[i], existing)
			}
		}
		return counts, existing.Clone()
	}

	values := make(Values)
	for i := range fields {
		f := &fields[i]
		if !f.IsGroup() {
			values[f.FieldID] = ""
			continue
		}
		n := f.DefaultReplicaCount
		if n < 1 {
			n = 1
		}
		counts[f.FieldID] = n
		for j := range f.Children {
			for idx := 0; idx < n; idx++ {
				values[ReplicaKey(f.Children[j].FieldID, idx)] = ""
			}
		}
	}
	return counts, values
}

// ResolveValue looks up a single representative value for a field id.
// The direct key wins; otherwise the id is treated as a group child and
// the first non-empty replica value in ascending index order is
// returned. ok is false when neither yields a value.
func ResolveValue(values Values, fieldID string) (value string, ok bool) {
	if v, exists := values[fieldID]; exists {
		return v, true
	}
	indices, byIndex := replicaValues(values, fieldID)
	for _, idx := range indices {
		if byIndex[idx] != "" {
			return byIndex[idx], true
		}
	}
	return "", false
}

// ResolveAllValues returns the full ordered slice of replica values for
// a group-child field id, with index gaps filled by empty strings.
// Returns nil when no replica keys exist for the id.
func ResolveAllValues(values Values, fieldID string) []string {
	indices, byIndex := replicaValues(values, fieldID)
	if len(indices) == 0 {
		return nil
	}
	out := make([]string, indices[len(indices)-1]+1)
	for _, idx := range indices {
		out[idx] = byIndex[idx]
	}
	return out
}

// replicaValues collects replica-encoded values for fieldID, returning
// the sorted indices and an index→value map.
func replicaValues(values Values, fieldID string) ([]int, map[int]string) {
	byIndex := make(map[int]string)
	var indices []int
	for key, v := range values {
		if idx, ok := replicaIndex(key, fieldID); ok {
			if _, seen := byIndex[idx]; !seen {
				indices = append(indices, idx)
			}
			byIndex[idx] = v
		}
	}
	sort.Ints(indices)
	return indices, byIndex
}
