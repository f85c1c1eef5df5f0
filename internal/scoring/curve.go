// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"fmt"
	"math"
)

// Point is one breakpoint of a Curve.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Curve is a piecewise-linear function given by breakpoints sorted by X.
// It is flat before the first and after the last breakpoint.
type Curve []Point

// At evaluates the curve at x. An empty curve is zero everywhere.
func (c Curve) At(x float64) float64 {
	if len(c) == 0 || math.IsNaN(x) {
		return 0
	}
	if x <= c[0].X {
		return c[0].Y
	}
	last := c[len(c)-1]
	if x >= last.X {
		return last.Y
	}
	for i := 1; i < len(c); i++ {
		lo, hi := c[i-1], c[i]
		if x > hi.X {
			continue
		}
		if hi.X == lo.X {
			return hi.Y
		}
		return lo.Y + (hi.Y-lo.Y)*(x-lo.X)/(hi.X-lo.X)
	}
	return last.Y
}

// Max returns the largest Y of the curve.
func (c Curve) Max() float64 {
	m := 0.0
	for _, p := range c {
		m = math.Max(m, p.Y)
	}
	return m
}

// validate checks that breakpoints ascend in X and every Y is non-negative.
func (c Curve) validate(name string) error {
	for i, p := range c {
		if p.Y < 0 || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%s: point %d has invalid y %v", name, i, p.Y)
		}
		if i > 0 && p.X < c[i-1].X {
			return fmt.Errorf("%s: points must be sorted by x (point %d)", name, i)
		}
	}
	return nil
}
