package domain

import "sort"

const (
	// PositionBase is the key assigned to the first item of an empty sibling set.
	PositionBase = 1024.0
	// PositionGap is the spacing between appended items.
	PositionGap = 1024.0
	// PositionEpsilon is the minimum usable gap between neighbors. Inserts
	// that would land closer than this trigger a renormalization pass.
	PositionEpsilon = 1e-6
)

// InsertPosition returns the ordering key placing an item at index within
// the given ascending sibling keys. Inserting at either end extends the
// set by PositionGap; inserting between neighbors takes their midpoint,
// so a single insert never renumbers existing siblings.
func InsertPosition(siblings []float64, index int) float64 {
	if len(siblings) == 0 {
		return PositionBase
	}
	if index <= 0 {
		return siblings[0] - PositionGap
	}
	if index >= len(siblings) {
		return siblings[len(siblings)-1] + PositionGap
	}
	return (siblings[index-1] + siblings[index]) / 2
}

// AppendPosition returns the key placing an item after all siblings.
func AppendPosition(siblings []float64) float64 {
	return InsertPosition(siblings, len(siblings))
}

// NeedsRenormalize reports whether any adjacent pair of the ascending
// sibling keys has converged below PositionEpsilon.
func NeedsRenormalize(siblings []float64) bool {
	for i := 1; i < len(siblings); i++ {
		if siblings[i]-siblings[i-1] < PositionEpsilon {
			return true
		}
	}
	return false
}

// Renormalize returns n evenly re-spaced keys preserving rank order.
func Renormalize(n int) []float64 {
	keys := make([]float64, n)
	for i := range keys {
		keys[i] = PositionBase + float64(i)*PositionGap
	}
	return keys
}

// SortLists orders lists by position, breaking ties by ID so the order is
// a stable total order.
func SortLists(lists []List) {
	sort.Slice(lists, func(i, j int) bool {
		if lists[i].Position != lists[j].Position {
			return lists[i].Position < lists[j].Position
		}
		return lists[i].ID < lists[j].ID
	})
}

// SortTasks orders tasks by position with the same tie-break as SortLists.
func SortTasks(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func taskPositions(tasks []Task) []float64 {
	keys := make([]float64, len(tasks))
	for i, t := range tasks {
		keys[i] = t.Position
	}
	return keys
}

func listPositions(lists []List) []float64 {
	keys := make([]float64, len(lists))
	for i, l := range lists {
		keys[i] = l.Position
	}
	return keys
}
