// Package ema
package ema

// EMA is an exponential moving average. Alpha is the weight of the new
// value; the first Add seeds the average.
type EMA struct {
	alpha float64
	value float64
	init  bool
}

func New(alpha float64) *EMA {
	return &EMA{alpha: alpha}
}

func (e *EMA) Add(v float64) float64 {
	if !e.init {
		e.value = v
		e.init = true
		return e.value
	}

	e.value = e.alpha*v + (1-e.alpha)*e.value
	return e.value
}

func (e *EMA) Value() float64 {
	return e.value
}

// Double stacks two EMAs and reports 2*ema1 - ema2, which tames spikes while
// lagging less than a single pass at the same alpha.
type Double struct {
	first  EMA
	second EMA
}

func NewDouble(alpha float64) *Double {
	return &Double{
		first:  EMA{alpha: alpha},
		second: EMA{alpha: alpha},
	}
}

func (d *Double) Add(v float64) float64 {
	e1 := d.first.Add(v)
	e2 := d.second.Add(e1)
	return 2*e1 - e2
}

func (d *Double) Value() float64 {
	return 2*d.first.Value() - d.second.Value()
}
