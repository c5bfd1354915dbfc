package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"blindseeker/internal/oracle"
	"blindseeker/internal/payload"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingOracle wraps a simulator and records every condition asked.
type recordingOracle struct {
	inner oracle.Oracle
	mu    sync.Mutex
	asked []oracle.Condition
}

func (r *recordingOracle) Name() string { return "recording" }

func (r *recordingOracle) Ask(ctx context.Context, c oracle.Condition) (bool, error) {
	r.mu.Lock()
	r.asked = append(r.asked, c)
	r.mu.Unlock()
	return r.inner.Ask(ctx, c)
}

func (r *recordingOracle) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.asked)
}

func simulated(secret string) *recordingOracle {
	return &recordingOracle{inner: payload.NewSimulator(payload.MySQL(), secret, 0)}
}

// =============================================================================
// LENGTH DISCOVERY
// =============================================================================

func TestDiscoverLength(t *testing.T) {
	for _, secret := range []string{"a", "testdb", "super_secret", strings.Repeat("x", 49)} {
		t.Run(fmt.Sprintf("len%d", len(secret)), func(t *testing.T) {
			o := simulated(secret)
			e := New(o, payload.MySQL())

			n, err := e.DiscoverLength(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(secret), n)
			assert.Equal(t, len(secret), o.count(), "one probe per candidate up to the match")

			last := o.asked[len(o.asked)-1]
			assert.Equal(t, payload.MySQL().LengthEquals(len(secret)), last, "no probe after the match")
		})
	}
}

func TestDiscoverLength_NotFound(t *testing.T) {
	o := simulated(strings.Repeat("y", 50))
	e := New(o, payload.MySQL())

	_, err := e.DiscoverLength(context.Background())
	require.ErrorIs(t, err, ErrLengthNotFound)
	assert.Equal(t, 49, o.count())

	for i, c := range o.asked {
		assert.Equal(t, payload.MySQL().LengthEquals(i+1), c, "probes must ascend from 1")
	}
}

func TestDiscoverLength_NeverTrue(t *testing.T) {
	var calls atomic.Int64
	never := oracle.Func(func(context.Context, oracle.Condition) (bool, error) {
		calls.Add(1)
		return false, nil
	})

	_, err := New(never, payload.MySQL()).DiscoverLength(context.Background())
	require.ErrorIs(t, err, ErrLengthNotFound)
	assert.Equal(t, int64(49), calls.Load())
}

func TestDiscoverLength_MaxLengthOption(t *testing.T) {
	o := simulated(strings.Repeat("z", 60))
	e := New(o, payload.MySQL(), WithMaxLength(64))

	n, err := e.DiscoverLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, n)
}

// =============================================================================
// CHARACTER RESOLUTION
// =============================================================================

func TestResolveChar_EveryPrintableCode(t *testing.T) {
	for code := LowCode; code <= HighCode; code++ {
		o := simulated(string(rune(code)))
		e := New(o, payload.MySQL())

		ch, err := e.ResolveChar(context.Background(), 1)
		require.NoError(t, err)
		if int(ch) != code {
			t.Fatalf("code %d resolved to %d", code, ch)
		}
		if o.count() > StepsPerChar {
			t.Fatalf("code %d took %d asks, want <= %d", code, o.count(), StepsPerChar)
		}
	}
}

func TestResolveChar_FirstOfSuperSecret(t *testing.T) {
	e := New(simulated("super_secret"), payload.MySQL())

	ch, err := e.ResolveChar(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, byte('s'), ch)
	assert.Equal(t, byte(115), ch)
}

// =============================================================================
// FULL PIPELINE
// =============================================================================

func TestExtract_TestDB(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]byte{}
	announced := 0

	e := New(simulated("testdb"), payload.MySQL(),
		WithLogger(zaptest.NewLogger(t)),
		WithLengthFound(func(n int) {
			if len(seen) != 0 {
				t.Error("length announced after a position resolved")
			}
			announced = n
		}),
		WithProgress(func(pos int, ch byte) {
			mu.Lock()
			defer mu.Unlock()
			if _, dup := seen[pos]; dup {
				t.Errorf("position %d reported twice", pos)
			}
			seen[pos] = ch
		}))

	report, err := e.Extract(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "testdb", report.Value)
	assert.Equal(t, 6, report.Length)
	assert.Equal(t, 6, announced)
	assert.Equal(t, 6*StepsPerChar, report.ApproxRequests)
	assert.Equal(t, int64(6), report.LengthProbes)
	assert.LessOrEqual(t, report.OracleCalls, int64(6+6*StepsPerChar))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "recording", report.Oracle)
	assert.Equal(t, "database()", report.Expression)

	want := map[int]byte{1: 't', 2: 'e', 3: 's', 4: 't', 5: 'd', 6: 'b'}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_OutOfOrderCompletionAssemblesInOrder(t *testing.T) {
	const secret = "super_secret"
	sim := payload.NewSimulator(payload.MySQL(), secret, 0)

	// Early positions answer slowest so later positions finish first.
	slow := oracle.Func(func(ctx context.Context, c oracle.Condition) (bool, error) {
		if strings.Contains(string(c), "SUBSTRING(database(),1,1)") {
			time.Sleep(5 * time.Millisecond)
		}
		return sim.Ask(ctx, c)
	})

	var mu sync.Mutex
	var order []int
	e := New(slow, payload.MySQL(), WithProgress(func(pos int, ch byte) {
		mu.Lock()
		order = append(order, pos)
		mu.Unlock()
	}))

	report, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, secret, report.Value)
	assert.Equal(t, byte('s'), report.Value[0])
	require.Len(t, order, len(secret))
	assert.NotEqual(t, 1, order[0], "position 1 should not complete first")
}

func TestExtract_LengthNotFoundStopsEarly(t *testing.T) {
	o := simulated(strings.Repeat("q", 80))
	_, err := New(o, payload.MySQL()).Extract(context.Background())

	require.ErrorIs(t, err, ErrLengthNotFound)
	assert.Equal(t, 49, o.count(), "no character search after length failure")
}

func TestExtract_ConcurrencyBound(t *testing.T) {
	const limit = 3
	sim := payload.NewSimulator(payload.MySQL(), "abcdefghijkl", 0)

	var inFlight, peak atomic.Int64
	instrumented := oracle.Func(func(ctx context.Context, c oracle.Condition) (bool, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return sim.Ask(ctx, c)
	})

	report, err := New(instrumented, payload.MySQL(), WithConcurrency(limit)).Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijkl", report.Value)
	assert.LessOrEqual(t, peak.Load(), int64(limit))
	assert.Greater(t, peak.Load(), int64(1), "positions should overlap")
}

func TestExtract_PropagatedTransportErrorIsFatal(t *testing.T) {
	sim := payload.NewSimulator(payload.MySQL(), "abc", 0)
	boom := &oracle.TransportError{Oracle: "boolean", Condition: "x", Err: errors.New("connection refused")}

	flaky := oracle.Func(func(ctx context.Context, c oracle.Condition) (bool, error) {
		if strings.Contains(string(c), "SUBSTRING(database(),2,1)") {
			return false, boom
		}
		return sim.Ask(ctx, c)
	})

	_, err := New(flaky, payload.MySQL()).Extract(context.Background())
	var te *oracle.TransportError
	require.ErrorAs(t, err, &te)
}

func TestExtract_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sim := payload.NewSimulator(payload.MySQL(), "abcdefgh", 0)

	var calls atomic.Int64
	o := oracle.Func(func(ctx context.Context, c oracle.Condition) (bool, error) {
		if calls.Add(1) == 20 {
			cancel()
		}
		return sim.Ask(ctx, c)
	})

	_, err := New(o, payload.MySQL(), WithConcurrency(2)).Extract(ctx)
	require.ErrorIs(t, err, context.Canceled)

	stopped := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load(), "no asks after cancellation returns")
}

func TestExtract_VotingRecoversDroppedAnswers(t *testing.T) {
	sim := payload.NewSimulator(payload.MySQL(), "dvwa", 0)

	// Every third ask is dropped and coerced to false.
	var n atomic.Int64
	lossy := oracle.Func(func(ctx context.Context, c oracle.Condition) (bool, error) {
		if n.Add(1)%3 == 0 {
			return false, nil
		}
		return sim.Ask(ctx, c)
	})

	e := New(oracle.NewVoting(lossy, 5), payload.MySQL(), WithConcurrency(1))
	report, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dvwa", report.Value)
}

// =============================================================================
// ASSEMBLY & REPORT
// =============================================================================

func TestAssemble(t *testing.T) {
	got, err := assemble([]byte("testdb"))
	require.NoError(t, err)
	assert.Equal(t, "testdb", got)

	_, err = assemble([]byte{'a', 0, 'c', 0})
	require.ErrorIs(t, err, ErrResultGap)
	var gap *GapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, []int{2, 4}, gap.Positions)
	assert.Equal(t, 4, gap.Length)
}

func TestReport_Throughput(t *testing.T) {
	r := &Report{
		Length:         6,
		ApproxRequests: 42,
		LengthProbes:   6,
		OracleCalls:    48,
		Duration:       2 * time.Second,
	}
	assert.InDelta(t, 21.0, r.ApproxThroughput(), 1e-9)
	assert.InDelta(t, 21.0, r.Throughput(), 1e-9)

	r.Duration = 0
	assert.Zero(t, r.ApproxThroughput())
}

func TestOptions_Clamp(t *testing.T) {
	e := New(simulated("x"), payload.MySQL(), WithConcurrency(0), WithMaxLength(-3), WithLogger(nil))
	assert.Equal(t, 1, e.concurrency)
	assert.Equal(t, 1, e.maxLength)
	assert.NotNil(t, e.logger)
}

func TestExtract_FixedRunID(t *testing.T) {
	e := New(simulated("ab"), payload.MySQL(), WithRunID("run-42"))
	report, err := e.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-42", report.RunID)
}
