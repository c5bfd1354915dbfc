package oracle

import (
	"context"
	"sync/atomic"
	"time"

	"blindseeker/internal/logging"
)

// Counting wraps an Oracle and counts every Ask.
type Counting struct {
	inner Oracle
	calls atomic.Int64
}

// NewCounting wraps o.
func NewCounting(o Oracle) *Counting {
	return &Counting{inner: o}
}

// Name implements Oracle.
func (c *Counting) Name() string { return c.inner.Name() }

// Ask implements Oracle.
func (c *Counting) Ask(ctx context.Context, cond Condition) (bool, error) {
	c.calls.Add(1)
	return c.inner.Ask(ctx, cond)
}

// Calls returns the number of Ask calls so far.
func (c *Counting) Calls() int64 { return c.calls.Load() }

// Voting asks the wrapped oracle several times per condition and
// returns the majority answer, stopping once a majority is reached.
type Voting struct {
	inner Oracle
	votes int
}

// NewVoting wraps o with majority voting over votes asks. One vote or
// fewer returns o unchanged; an even count is rounded up.
func NewVoting(o Oracle, votes int) Oracle {
	if votes <= 1 {
		return o
	}
	if votes%2 == 0 {
		votes++
	}
	return &Voting{inner: o, votes: votes}
}

// Name implements Oracle.
func (v *Voting) Name() string { return v.inner.Name() }

// Ask implements Oracle.
func (v *Voting) Ask(ctx context.Context, c Condition) (bool, error) {
	need := v.votes/2 + 1
	yes, no := 0, 0
	for i := 0; i < v.votes; i++ {
		ok, err := v.inner.Ask(ctx, c)
		if err != nil {
			return false, err
		}
		if ok {
			yes++
		} else {
			no++
		}
		if yes >= need {
			return true, nil
		}
		if no >= need {
			return false, nil
		}
	}
	return yes > no, nil
}

// Audited records every Ask, with its answer and latency, in an audit log.
type Audited struct {
	inner Oracle
	log   *logging.AuditLog
}

// NewAudited wraps o. A nil log returns o unchanged.
func NewAudited(o Oracle, log *logging.AuditLog) Oracle {
	if log == nil {
		return o
	}
	return &Audited{inner: o, log: log}
}

// Name implements Oracle.
func (a *Audited) Name() string { return a.inner.Name() }

// Ask implements Oracle.
func (a *Audited) Ask(ctx context.Context, c Condition) (bool, error) {
	start := time.Now()
	ok, err := a.inner.Ask(ctx, c)
	a.log.Ask(a.inner.Name(), string(c), ok, time.Since(start), err)
	return ok, err
}
