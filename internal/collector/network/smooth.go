package network

import "klv-monitor/internal/ema"

// rateSmoother holds the EMA state for one direction of traffic. Rebuilt
// whenever the smoothing preferences change.
type rateSmoother struct {
	alpha  float64
	double bool

	single *ema.EMA
	dbl    *ema.Double
}

func newRateSmoother(alpha float64, double bool) *rateSmoother {
	s := &rateSmoother{alpha: alpha, double: double}
	if double {
		s.dbl = ema.NewDouble(alpha)
	} else {
		s.single = ema.New(alpha)
	}
	return s
}

func (s *rateSmoother) add(v float64) float64 {
	var out float64
	if s.double {
		out = s.dbl.Add(v)
	} else {
		out = s.single.Add(v)
	}
	// Smoothing can undershoot zero right after a spike.
	if out < 0 {
		return 0
	}
	return out
}
