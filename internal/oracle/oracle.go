// Package oracle defines the truth oracle contract: a component that
// answers whether a boolean condition holds on the target. The extractor
// only ever talks to this interface, so new signal kinds plug in by
// registering a Factory.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Condition is the boolean predicate text sent to the target.
type Condition string

// Oracle answers yes/no questions about the target.
// Ask blocks on I/O, honours ctx and is safe for concurrent use.
type Oracle interface {
	Name() string
	Ask(ctx context.Context, c Condition) (bool, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, c Condition) (bool, error)

// Name implements Oracle.
func (f Func) Name() string { return "func" }

// Ask implements Oracle.
func (f Func) Ask(ctx context.Context, c Condition) (bool, error) { return f(ctx, c) }

// FailurePolicy decides what a transport failure turns into.
type FailurePolicy int

const (
	// PolicyCoerceFalse logs the failure and answers false.
	PolicyCoerceFalse FailurePolicy = iota
	// PolicyPropagate returns a *TransportError to the caller.
	PolicyPropagate
)

// String returns the policy name.
func (p FailurePolicy) String() string {
	switch p {
	case PolicyCoerceFalse:
		return "coerce-false"
	case PolicyPropagate:
		return "propagate"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// TransportError reports a network or protocol failure during Ask.
type TransportError struct {
	Oracle    string
	Condition Condition
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("oracle %s: transport failure for %q: %v", e.Oracle, e.Condition, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// settle turns a failed ask into the answer the policy prescribes.
// Cancellation always wins so an interrupt stops extraction.
func settle(ctx context.Context, logger *zap.Logger, policy FailurePolicy, name string, c Condition, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return false, err
	}

	logger.Warn("Request failed",
		zap.String("oracle", name),
		zap.String("condition", string(c)),
		zap.Stringer("policy", policy),
		zap.Error(err))

	if policy == PolicyPropagate {
		return false, &TransportError{Oracle: name, Condition: c, Err: err}
	}
	return false, nil
}
