package typesystem

import "fmt"

// ConflictKind classifies a unification failure.
type ConflictKind int

const (
	Mismatch ConflictKind = iota
	InfiniteType
)

func (k ConflictKind) String() string {
	switch k {
	case InfiniteType:
		return "InfiniteType"
	default:
		return "Mismatch"
	}
}

// UnifyError is returned when two terms cannot be unified.
// Left and Right are the innermost terms that failed, after substitution.
// LeftVar/RightVar name the variable each side was reached through, if any,
// so the caller can locate the constraint that pinned it.
type UnifyError struct {
	Kind     ConflictKind
	Left     Type
	Right    Type
	LeftVar  string
	RightVar string
	Detail   string
}

func (e *UnifyError) Error() string {
	switch e.Kind {
	case InfiniteType:
		return fmt.Sprintf("infinite type: %s occurs in %s", e.Left, e.Right)
	default:
		if e.Detail != "" {
			return fmt.Sprintf("type mismatch: %s vs %s (%s)", e.Left, e.Right, e.Detail)
		}
		return fmt.Sprintf("type mismatch: %s vs %s", e.Left, e.Right)
	}
}

func errMismatch(left, right Type, detail string) *UnifyError {
	return &UnifyError{Kind: Mismatch, Left: left, Right: right, Detail: detail}
}
