package bench

import "math"

// Result is the outcome of benchmarking one strategy or group-size variant.
type Result struct {
	Strategy        string  `json:"strategy"`
	GroupSize       int     `json:"group_size,omitempty"`
	Width           uint32  `json:"width"`
	Height          uint32  `json:"height"`
	Iterations      int     `json:"iterations"`
	AvgMicroseconds float64 `json:"avg_us"`
	MinMicroseconds float64 `json:"min_us"`
	MaxMicroseconds float64 `json:"max_us"`
	TotalTicks      uint64  `json:"total_ticks"`
	Frequency       float64 `json:"frequency_hz"`
	Verified        bool    `json:"verified,omitempty"`
	Mismatches      int     `json:"mismatches,omitempty"`
}

// Accumulator sums per-iteration tick counts. The sum is kept in integer
// ticks, so the mean is exact and independent of sample order.
type Accumulator struct {
	n     int
	total uint64
	min   uint64
	max   uint64
}

// Add records one sample.
func (a *Accumulator) Add(ticks uint64) {
	if a.n == 0 || ticks < a.min {
		a.min = ticks
	}
	if ticks > a.max {
		a.max = ticks
	}
	a.total += ticks
	a.n++
}

// Count returns the number of samples.
func (a *Accumulator) Count() int { return a.n }

// Total returns the sum of all samples in ticks.
func (a *Accumulator) Total() uint64 { return a.total }

// MeanTicks returns the arithmetic mean in ticks, or NaN with no samples.
func (a *Accumulator) MeanTicks() float64 {
	if a.n == 0 {
		return math.NaN()
	}
	return float64(a.total) / float64(a.n)
}

// Fill sets the timing fields of res from the accumulated samples.
func (a *Accumulator) Fill(res *Result, frequency float64) {
	us := func(ticks float64) float64 { return ticks / frequency * 1e6 }
	res.Iterations = a.n
	res.TotalTicks = a.total
	res.Frequency = frequency
	res.AvgMicroseconds = us(a.MeanTicks())
	res.MinMicroseconds = us(float64(a.min))
	res.MaxMicroseconds = us(float64(a.max))
}
