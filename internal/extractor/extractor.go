// Package extractor reconstructs a hidden string one character at a
// time from yes/no answers. The length is found by sequential probing;
// each position is then resolved by binary search over printable
// ASCII, with positions searched concurrently behind an admission gate.
package extractor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blindseeker/internal/oracle"
	"blindseeker/internal/payload"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultConcurrency = 20
	DefaultMaxLength   = 49

	// LowCode and HighCode bound the printable ASCII search interval.
	LowCode  = 32
	HighCode = 126

	// StepsPerChar is ceil(log2(HighCode-LowCode+1)), the most asks
	// one position can take.
	StepsPerChar = 7
)

// ProgressFunc is told about each resolved position. Calls are
// serialized by the extractor.
type ProgressFunc func(pos int, ch byte)

// Option configures an Extractor.
type Option func(*Extractor)

// WithConcurrency sets how many positions may be searched at once.
// Values below 1 are raised to 1.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// WithMaxLength sets the highest length DiscoverLength probes.
func WithMaxLength(n int) Option {
	return func(e *Extractor) {
		if n < 1 {
			n = 1
		}
		e.maxLength = n
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProgress registers a per-position callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Extractor) { e.progress = fn }
}

// WithLengthFound registers a callback run once the length is known,
// before any position is searched.
func WithLengthFound(fn func(length int)) Option {
	return func(e *Extractor) { e.onLength = fn }
}

// WithRunID fixes the run identifier reported by Extract. Without it
// every Extract call generates a fresh one.
func WithRunID(id string) Option {
	return func(e *Extractor) { e.runID = id }
}

// Extractor drives an oracle to recover the expression a Builder
// renders conditions about. It holds no per-run state and may run
// several extractions one after another.
type Extractor struct {
	oracle      oracle.Oracle
	builder     payload.Builder
	concurrency int
	maxLength   int
	logger      *zap.Logger
	progress    ProgressFunc
	onLength    func(int)
	runID       string
}

// New creates an Extractor.
func New(o oracle.Oracle, b payload.Builder, opts ...Option) *Extractor {
	e := &Extractor{
		oracle:      o,
		builder:     b,
		concurrency: DefaultConcurrency,
		maxLength:   DefaultMaxLength,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DiscoverLength probes lengths 1..max in order and returns the first
// the oracle confirms.
func (e *Extractor) DiscoverLength(ctx context.Context) (int, error) {
	return e.discoverLength(ctx, e.oracle)
}

// ResolveChar binary-searches the character at 1-based pos. It is not
// gated; Extract gates it per position.
func (e *Extractor) ResolveChar(ctx context.Context, pos int) (byte, error) {
	return e.resolveChar(ctx, e.oracle, pos)
}

func (e *Extractor) discoverLength(ctx context.Context, o oracle.Oracle) (int, error) {
	for n := 1; n <= e.maxLength; n++ {
		ok, err := o.Ask(ctx, e.builder.LengthEquals(n))
		if err != nil {
			return 0, fmt.Errorf("length probe %d: %w", n, err)
		}
		if ok {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w (probed 1..%d)", ErrLengthNotFound, e.maxLength)
}

func (e *Extractor) resolveChar(ctx context.Context, o oracle.Oracle, pos int) (byte, error) {
	// Invariant: the code point lies in [low, high].
	low, high := LowCode, HighCode
	for low < high {
		mid := (low + high) / 2
		ok, err := o.Ask(ctx, e.builder.CodeGreaterThan(pos, mid))
		if err != nil {
			return 0, fmt.Errorf("position %d: %w", pos, err)
		}
		if ok {
			low = mid + 1
		} else {
			high = mid
		}
	}
	return byte(low), nil
}

// session is the state of one Extract call.
type session struct {
	id     string
	gate   *semaphore.Weighted
	slots  []byte // slots[pos-1]; zero means unresolved
	mu     sync.Mutex
	logger *zap.Logger
}

// Extract discovers the length, resolves every position concurrently
// and assembles the result in position order.
func (e *Extractor) Extract(ctx context.Context) (*Report, error) {
	counter := oracle.NewCounting(e.oracle)
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := e.logger.With(zap.String("run", runID))
	startedAt := time.Now()

	log.Info("Determining length...", zap.String("expression", e.builder.Expression()))
	length, err := e.discoverLength(ctx, counter)
	if err != nil {
		return nil, err
	}
	lengthCalls := counter.Calls()
	log.Info("Length found", zap.Int("length", length), zap.Int64("probes", lengthCalls))
	if e.onLength != nil {
		e.onLength(length)
	}

	s := &session{
		id:     runID,
		gate:   semaphore.NewWeighted(int64(e.concurrency)),
		slots:  make([]byte, length),
		logger: log,
	}

	log.Info("Starting parallel extraction", zap.Int("positions", length), zap.Int("concurrency", e.concurrency))
	extractStart := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for pos := 1; pos <= length; pos++ {
		g.Go(func() error {
			return e.resolveGated(gctx, counter, s, pos)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extraction aborted: %w", err)
	}
	duration := time.Since(extractStart)

	value, err := assemble(s.slots)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:          runID,
		Oracle:         e.oracle.Name(),
		Expression:     e.builder.Expression(),
		Value:          value,
		Length:         length,
		Concurrency:    e.concurrency,
		StartedAt:      startedAt,
		Duration:       duration,
		Elapsed:        time.Since(startedAt),
		LengthProbes:   lengthCalls,
		OracleCalls:    counter.Calls(),
		ApproxRequests: length * StepsPerChar,
	}
	log.Info("Extraction complete",
		zap.String("value", value),
		zap.Duration("duration", duration),
		zap.Int64("oracle_calls", report.OracleCalls))
	return report, nil
}

// resolveGated holds one gate slot for the whole search of pos.
func (e *Extractor) resolveGated(ctx context.Context, o oracle.Oracle, s *session, pos int) error {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.gate.Release(1)

	ch, err := e.resolveChar(ctx, o, pos)
	if err != nil {
		return err
	}

	// Each goroutine owns slots[pos-1]; the mutex only serializes progress.
	s.slots[pos-1] = ch
	s.logger.Debug("Resolved position", zap.Int("pos", pos), zap.String("char", string(rune(ch))))
	if e.progress != nil {
		s.mu.Lock()
		e.progress(pos, ch)
		s.mu.Unlock()
	}
	return nil
}

// assemble joins slots in ascending position order, failing on gaps.
func assemble(slots []byte) (string, error) {
	var missing []int
	for i, ch := range slots {
		if ch == 0 {
			missing = append(missing, i+1)
		}
	}
	if len(missing) > 0 {
		return "", &GapError{Length: len(slots), Positions: missing}
	}
	return string(slots), nil
}
