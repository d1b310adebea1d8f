package driver

// State is a position in the driver's state machine:
//
//	Init → CollectAnnotations → InferLocal → FlowSensitize → ExternalValidate
//	     → Converged | Exhausted | Unsolvable
//
// InferLocal, FlowSensitize and ExternalValidate repeat once per pass.
type State int

const (
	Init State = iota
	CollectAnnotations
	InferLocal
	FlowSensitize
	ExternalValidate
	Converged
	Exhausted
	Unsolvable
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case CollectAnnotations:
		return "CollectAnnotations"
	case InferLocal:
		return "InferLocal"
	case FlowSensitize:
		return "FlowSensitize"
	case ExternalValidate:
		return "ExternalValidate"
	case Converged:
		return "Converged"
	case Exhausted:
		return "Exhausted"
	case Unsolvable:
		return "Unsolvable"
	default:
		return "State(?)"
	}
}

// Halted reports whether s is terminal.
func (s State) Halted() bool {
	return s == Converged || s == Exhausted || s == Unsolvable
}

// Outcome is the three-way verdict a consumer must handle.
type Outcome int

const (
	// OutcomeSolved: every live binding has a concrete type, no conflicts.
	OutcomeSolved Outcome = iota
	// OutcomePartial: no conflicts, but Unknown bindings remain.
	OutcomePartial
	// OutcomeFailed: at least one conflict was reported.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSolved:
		return "solved"
	case OutcomePartial:
		return "partial"
	default:
		return "failed"
	}
}
