package models

// ReconcileReport summarizes one pass of phantom-asset reconciliation.
// The pass is best-effort: item failures are counted, not fatal.
type ReconcileReport struct {
	// Checked is the number of registry rows inspected.
	Checked int
	// Missing counts rows whose backing object was absent remotely.
	Missing int
	// Removed counts rows actually deleted from the registry.
	Removed int
	// Errors counts rows whose existence check or removal failed.
	Errors int
}
