package extractor

import (
	"errors"
	"fmt"
)

var (
	// ErrLengthNotFound means no probed length matched.
	ErrLengthNotFound = errors.New("could not determine length")

	// ErrResultGap means a position finished without a character.
	ErrResultGap = errors.New("result gap")
)

// GapError lists the positions assembly found unresolved.
type GapError struct {
	Length    int
	Positions []int
}

func (e *GapError) Error() string {
	return fmt.Sprintf("result gap: %d of %d positions unresolved %v", len(e.Positions), e.Length, e.Positions)
}

func (e *GapError) Unwrap() error { return ErrResultGap }
