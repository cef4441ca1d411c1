package reconcile

import "fmt"

// ContractViolation is spec.md §7's DriverContractViolation: a Driver
// returned structurally invalid data from describeDatabase/describeTable/
// describeTableFks. It is fatal to the sync run and propagates out of the
// reconciler that detected it. It is modeled on
// smf/internal/core.ValidationError (a small struct + Error()), with
// Operation and Reason as its fields.
type ContractViolation struct {
	Operation string // e.g. "describeDatabase"
	Reason    string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("reconcile: driver contract violation in %s: %s", e.Operation, e.Reason)
}
