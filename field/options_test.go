package field

import (
	"testing"

	"github.com/mbolis/formforge/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionOptions(t *testing.T) {
	existing := []int{10, 11, 12}
	submitted := []model.FieldOption{
		{ID: 11, Label: "B", Value: "b"},
		{Label: "D", Value: "d"},
	}

	part := PartitionOptions(submitted, existing)

	require.Len(t, part.ToUpdate, 1)
	assert.Equal(t, 11, part.ToUpdate[0].ID)
	require.Len(t, part.ToInsert, 1)
	assert.Equal(t, "D", part.ToInsert[0].Label)
	assert.Equal(t, []int{11}, part.SubmittedIDs)

	// after inserts allocate, say, id 13
	orphans := OrphanedOptions(existing, part.SubmittedIDs, []int{13})
	assert.Equal(t, []int{10, 12}, orphans)
}

func TestPartitionOptions_StaleIDBecomesInsert(t *testing.T) {
	part := PartitionOptions([]model.FieldOption{{ID: 99, Label: "X"}}, []int{10})

	require.Len(t, part.ToInsert, 1)
	assert.Zero(t, part.ToInsert[0].ID, "stale id is stripped")
	assert.Empty(t, part.ToUpdate)
	assert.Empty(t, part.SubmittedIDs)
}

func TestPartitionOptions_Disjoint(t *testing.T) {
	existing := []int{1, 2, 3}
	submitted := []model.FieldOption{
		{ID: 1, Label: "A"},
		{ID: 3, Label: "C"},
		{Label: "new"},
		{ID: 7, Label: "stale"},
	}

	part := PartitionOptions(submitted, existing)

	for _, u := range part.ToUpdate {
		for _, i := range part.ToInsert {
			assert.NotEqual(t, u.Label, i.Label, "insert and update sets overlap")
		}
	}
	assert.Len(t, part.ToUpdate, 2)
	assert.Len(t, part.ToInsert, 2)

	// every existing id lands in exactly one of submitted/orphaned
	orphans := OrphanedOptions(existing, part.SubmittedIDs, nil)
	seen := map[int]int{}
	for _, id := range part.SubmittedIDs {
		seen[id]++
	}
	for _, id := range orphans {
		seen[id]++
	}
	for _, id := range existing {
		assert.Equal(t, 1, seen[id], "id %d", id)
	}
}

func TestOrphanedOptions_Empty(t *testing.T) {
	assert.Empty(t, OrphanedOptions(nil, nil, nil))
	assert.Empty(t, OrphanedOptions([]int{1, 2}, []int{1}, []int{2}))
}
