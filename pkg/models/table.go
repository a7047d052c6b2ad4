package models

// TableStatus is the floor state of a physical table.
type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
	TableReserved  TableStatus = "RESERVED"
	TableBlocked   TableStatus = "BLOCKED"
)

// Table is a physical table in the table registry. Features use the same
// vocabulary as customer table preferences so suggestion and allocation
// can match them directly.
type Table struct {
	Entity

	Number   int               `json:"number"`
	Capacity int               `json:"capacity"`
	Features []TablePreference `json:"features,omitempty"`
	Status   TableStatus       `json:"status"`
}

// HasFeature reports whether the table offers the given feature.
func (t *Table) HasFeature(f TablePreference) bool {
	for _, have := range t.Features {
		if have == f {
			return true
		}
	}
	return false
}

// UpsertTableRequest registers or updates a table in the registry,
// keyed by its floor number.
type UpsertTableRequest struct {
	Number   int               `json:"number"`
	Capacity int               `json:"capacity"`
	Features []TablePreference `json:"features,omitempty"`
	Status   TableStatus       `json:"status,omitempty"`
}
