package ema

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFirstSampleSeedsAverage(t *testing.T) {
	e := New(0.4)
	if got := e.Add(80); !almostEqual(got, 80) {
		t.Errorf("first Add = %f, want 80", got)
	}
}

func TestRecurrence(t *testing.T) {
	alpha := 0.4
	e := New(alpha)
	e.Add(10)

	want := alpha*30 + (1-alpha)*10
	if got := e.Add(30); !almostEqual(got, want) {
		t.Errorf("Add(30) = %f, want %f", got, want)
	}

	next := alpha*0 + (1-alpha)*want
	if got := e.Add(0); !almostEqual(got, next) {
		t.Errorf("Add(0) = %f, want %f", got, next)
	}
	if got := e.Value(); !almostEqual(got, next) {
		t.Errorf("Value = %f, want %f", got, next)
	}
}

func TestConstantInputIsFixedPoint(t *testing.T) {
	e := New(0.1)
	for i := 0; i < 100; i++ {
		e.Add(42.5)
	}
	if got := e.Value(); !almostEqual(got, 42.5) {
		t.Errorf("constant input drifted to %f", got)
	}
}

func TestConvergesTowardNewLevel(t *testing.T) {
	e := New(0.4)
	e.Add(0)
	var got float64
	for i := 0; i < 50; i++ {
		got = e.Add(100)
	}
	if math.Abs(got-100) > 1e-6 {
		t.Errorf("failed to converge: %f", got)
	}
}

func TestDoubleMatchesStackedDefinition(t *testing.T) {
	alpha := 0.4
	d := NewDouble(alpha)
	e1 := New(alpha)
	e2 := New(alpha)

	inputs := []float64{5, 80, 3, 60, 60, 0, 12.5}
	for _, v := range inputs {
		a := e1.Add(v)
		b := e2.Add(a)
		want := 2*a - b
		if got := d.Add(v); !almostEqual(got, want) {
			t.Fatalf("Double.Add(%f) = %f, want %f", v, got, want)
		}
	}

	if got, want := d.Value(), 2*e1.Value()-e2.Value(); !almostEqual(got, want) {
		t.Errorf("Double.Value = %f, want %f", got, want)
	}
}

func TestDoubleLagsLessThanSingle(t *testing.T) {
	alpha := 0.2
	single := New(alpha)
	double := NewDouble(alpha)

	single.Add(0)
	double.Add(0)

	var s, d float64
	for i := 0; i < 10; i++ {
		s = single.Add(100)
		d = double.Add(100)
	}

	if d <= s {
		t.Errorf("double pass should track the step faster: single=%f double=%f", s, d)
	}
}
