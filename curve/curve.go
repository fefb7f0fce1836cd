// Package curve provides the timing-advance curve: spark advance as a function of
// engine speed, sampled by interpolating between table points.
package curve

import (
	"fmt"
	"io"
	"sort"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/interp"

	"github.com/pthm-cable/ignition/units"
)

// Point is one row of a timing table in workshop units.
type Point struct {
	RPM        float64 `csv:"rpm" yaml:"rpm"`
	AdvanceDeg float64 `csv:"advance_deg" yaml:"advance_deg"`
}

// Function is a sampled scalar function y(x). For timing curves x is engine speed
// in rad/s and y is advance in radians.
type Function struct {
	xs, ys []float64

	pl    interp.PiecewiseLinear
	dirty bool
}

// New creates an empty function. An empty function samples to 0.
func New() *Function {
	return &Function{}
}

// FromPoints builds a timing curve from rpm/degree table points.
// Points may be given in any order; duplicate rpm values are an error.
func FromPoints(points []Point) (*Function, error) {
	f := New()
	for _, p := range points {
		x := units.Rpm(p.RPM)
		if _, ok := f.find(x); ok {
			return nil, fmt.Errorf("timing curve: duplicate rpm %v", p.RPM)
		}
		f.AddSample(x, units.Deg(p.AdvanceDeg))
	}
	if err := f.fit(); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadCSV reads a timing table with "rpm,advance_deg" columns.
func LoadCSV(r io.Reader) (*Function, error) {
	var points []Point
	if err := gocsv.Unmarshal(r, &points); err != nil {
		return nil, fmt.Errorf("parsing timing curve csv: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("timing curve csv has no rows")
	}
	return FromPoints(points)
}

// AddSample inserts a point, keeping samples ordered by x. A sample at an existing
// x replaces its y.
func (f *Function) AddSample(x, y float64) {
	i, ok := f.find(x)
	f.dirty = true
	if ok {
		f.ys[i] = y
		return
	}
	f.xs = append(f.xs, 0)
	f.ys = append(f.ys, 0)
	copy(f.xs[i+1:], f.xs[i:])
	copy(f.ys[i+1:], f.ys[i:])
	f.xs[i] = x
	f.ys[i] = y
}

// find returns the insertion index of x and whether a sample already sits there.
func (f *Function) find(x float64) (int, bool) {
	i := sort.SearchFloat64s(f.xs, x)
	return i, i < len(f.xs) && f.xs[i] == x
}

// Len returns the number of samples.
func (f *Function) Len() int {
	return len(f.xs)
}

// Sample returns the i-th sample point.
func (f *Function) Sample(i int) (x, y float64) {
	return f.xs[i], f.ys[i]
}

// SampleTriangle interpolates linearly between the samples bracketing x.
// Outside the sampled range the nearest end value is held.
func (f *Function) SampleTriangle(x float64) float64 {
	switch len(f.xs) {
	case 0:
		return 0
	case 1:
		return f.ys[0]
	}
	if f.dirty {
		if err := f.fit(); err != nil {
			panic(fmt.Sprintf("curve: %v", err))
		}
	}
	return f.pl.Predict(x)
}

func (f *Function) fit() error {
	f.dirty = false
	if len(f.xs) < 2 {
		return nil
	}
	// interp panics on repeated or NaN x instead of returning an error
	for i := 1; i < len(f.xs); i++ {
		if !(f.xs[i] > f.xs[i-1]) {
			return fmt.Errorf("timing curve: x not increasing at %v", f.xs[i])
		}
	}
	if err := f.pl.Fit(f.xs, f.ys); err != nil {
		return fmt.Errorf("fitting timing curve: %w", err)
	}
	return nil
}
