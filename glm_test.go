// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/check.v1"
)

type glmSuite struct{}

var _ = check.Suite(&glmSuite{})

func glmKinship(n int) *mat.SymDense {
	cols := make([]string, n)
	for j := range cols {
		cols[j] = string(rune('a' + j))
	}
	m := NewFeatureMatrix([]string{"f1", "f2", "f3"}, cols)
	for j := 0; j < n; j++ {
		m.Set(0, j, math.Sin(float64(j)))
		m.Set(1, j, math.Cos(float64(2*j+1)))
		m.Set(2, j, math.Sin(float64(3*j+2)))
	}
	k, err := BuildKinship(m)
	if err != nil {
		panic(err)
	}
	return k.K
}

func (s *glmSuite) TestBinaryResponse(c *check.C) {
	// 0/1 outcome tracking x1 with deliberate overlap on both sides so
	// the logistic fit cannot separate completely
	y := []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	x1 := []float64{
		-1.5, -1.2, -0.9, -0.7, -0.5, 0.6, -0.3, 0.8, -0.1, 0.4,
		0.2, -0.6, 0.5, 0.9, 1.1, -0.4, 0.7, 1.3, 0.3, 1.0,
	}
	n := len(y)
	x := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, x1[i])
		x.Set(i, 1, math.Cos(float64(5*i+3)))
	}
	m := constantColumn(n, 1)

	solver := &GLMSolver{Components: 2}
	assocs, err := solver.Scan(y, x, m, glmKinship(n), []string{"signal", "noise"})
	c.Assert(err, check.IsNil)
	c.Assert(assocs, check.HasLen, 2)

	signal, noise := assocs[0], assocs[1]
	c.Check(signal.Name, check.Equals, "signal")
	if math.IsNaN(signal.PValue) || signal.PValue < 0 || signal.PValue > 1 {
		c.Fatalf("p(signal) = %v", signal.PValue)
	}
	if !(signal.PValue < 0.05) {
		c.Errorf("p(signal) = %v, want < 0.05", signal.PValue)
	}
	if !math.IsNaN(noise.PValue) && !(signal.PValue < noise.PValue) {
		c.Errorf("p(signal)=%v not below p(noise)=%v", signal.PValue, noise.PValue)
	}
	if !(signal.Beta > 0) {
		c.Errorf("beta(signal) = %v, want positive", signal.Beta)
	}
}

func (s *glmSuite) TestDegenerateVariantYieldsNaN(c *check.C) {
	y := []float64{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 1}
	n := len(y)
	x := mat.NewDense(n, 1, nil) // all-zero column, coefficient not identifiable
	m := constantColumn(n, 1)

	solver := &GLMSolver{Components: 2}
	assocs, err := solver.Scan(y, x, m, glmKinship(n), []string{"flat"})
	c.Assert(err, check.IsNil)
	c.Assert(assocs, check.HasLen, 1)
	if !math.IsNaN(assocs[0].PValue) && !(assocs[0].PValue > 0.5) {
		c.Errorf("p-value for degenerate variant: %v", assocs[0].PValue)
	}
}
