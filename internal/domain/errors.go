package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConstraintViolation = errors.New("constraint violation")
	ErrSolverInfeasible    = errors.New("solver infeasible")
)

type ConstraintID string

const (
	ConstraintReference     ConstraintID = "C0"
	ConstraintCapacity      ConstraintID = "C1"
	ConstraintZoneAccess    ConstraintID = "C2"
	ConstraintCompatibility ConstraintID = "C3"
	ConstraintTime          ConstraintID = "C4"
	ConstraintCoLoading     ConstraintID = "C5"
	ConstraintOperator      ConstraintID = "C6"
)

// A single failed rule for an order/agent pair.
type Violation struct {
	Constraint ConstraintID
	OrderID    string
	AgentID    string
	Cause      string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s order=%s agent=%s: %s", v.Constraint, v.OrderID, v.AgentID, v.Cause)
}

// ConstraintViolationError rejects an allocation that failed post-hoc verification.
type ConstraintViolationError struct {
	Strategy   string
	Violations []Violation
}

func (e *ConstraintViolationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%s allocation rejected: %d violation(s): %s", e.Strategy, len(e.Violations), strings.Join(parts, "; "))
}

func (e *ConstraintViolationError) Unwrap() error { return ErrConstraintViolation }

type SolverInfeasibleError struct {
	Strategy string
	OrderIDs []string
}

func (e *SolverInfeasibleError) Error() string {
	return fmt.Sprintf("%s: no feasible allocation; cannot place orders [%s]", e.Strategy, strings.Join(e.OrderIDs, ", "))
}

func (e *SolverInfeasibleError) Unwrap() error { return ErrSolverInfeasible }
