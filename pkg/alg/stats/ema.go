package stats

// EMA is an exponential moving average with a fixed smoothing factor.
type EMA struct {
	alpha       float64
	value       float64
	initialized bool
}

// NewEMA creates an EMA with smoothing factor alpha in (0, 1].
func NewEMA(alpha float64) *EMA {
	return &EMA{alpha: alpha}
}

// Update feeds one observation and returns the smoothed value.
// The first observation seeds the average.
func (e *EMA) Update(v float64) float64 {
	if !e.initialized {
		e.value = v
		e.initialized = true

		return e.value
	}

	e.value += e.alpha * (v - e.value)

	return e.value
}

// Value returns the current average, 0 before the first Update.
func (e *EMA) Value() float64 {
	return e.value
}
