package models

// ReorderEntry is one element of the reorder action's JSON payload:
// the record to move and the rank it should take.
type ReorderEntry struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}
