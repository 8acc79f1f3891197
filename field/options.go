package field

import (
	"github.com/mbolis/formforge/model"
	"github.com/samber/lo"
)

// OptionPartition is the add/update split of one submitted option list
// against the persisted set. The id is the only diffing key an option has:
// a submitted option carrying a known id keeps its identity, anything else
// is a fresh insert (a stale id is stripped).
type OptionPartition struct {
	ToInsert     []model.FieldOption
	ToUpdate     []model.FieldOption
	SubmittedIDs []int
}

// PartitionOptions classifies each submitted option as update or insert.
// Deletes are computed afterwards with OrphanedOptions, once inserts have
// been applied and their fresh ids are known.
func PartitionOptions(submitted []model.FieldOption, existingIDs []int) OptionPartition {
	part := OptionPartition{}
	for _, o := range submitted {
		if o.ID > 0 && lo.Contains(existingIDs, o.ID) {
			part.ToUpdate = append(part.ToUpdate, o)
			part.SubmittedIDs = append(part.SubmittedIDs, o.ID)
		} else {
			o.ID = 0
			part.ToInsert = append(part.ToInsert, o)
		}
	}
	return part
}

// OrphanedOptions returns every previously stored id the client no longer
// mentions: existing minus submitted minus inserted. Those rows are deleted.
func OrphanedOptions(existingIDs, submittedIDs, insertedIDs []int) []int {
	kept := lo.Union(submittedIDs, insertedIDs)
	return lo.Without(existingIDs, kept...)
}
