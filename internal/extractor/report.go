package extractor

import "time"

// Report summarises one successful extraction.
type Report struct {
	RunID       string
	Oracle      string
	Expression  string
	Value       string
	Length      int
	Concurrency int
	StartedAt   time.Time

	// Duration covers the parallel character phase only; Elapsed also
	// includes length discovery.
	Duration time.Duration
	Elapsed  time.Duration

	LengthProbes   int64 // asks spent discovering the length
	OracleCalls    int64 // every ask of the run
	ApproxRequests int   // Length * StepsPerChar
}

// ApproxThroughput is the reference figure: Length*7 requests over the
// character phase duration, in requests per second.
func (r *Report) ApproxThroughput() float64 {
	return perSecond(float64(r.ApproxRequests), r.Duration)
}

// Throughput is the measured ask rate of the character phase.
func (r *Report) Throughput() float64 {
	return perSecond(float64(r.OracleCalls-r.LengthProbes), r.Duration)
}

func perSecond(n float64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return n / d.Seconds()
}
