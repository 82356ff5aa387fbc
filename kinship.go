// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kinship is a symmetric sample×sample relatedness matrix, used as the
// random-effect covariance in the mixed model. It is derived from a
// feature matrix as K = XXᵗ scaled so that the mean of its diagonal is
// 1; the scaling keeps the random-effect variance component on a
// comparable scale regardless of which feature matrix it was derived
// from. Built fresh per scan context, never persisted.
type Kinship struct {
	Samples []string
	K       *mat.SymDense
	index   map[string]int
}

// BuildKinship computes the normalized Gram matrix over the columns
// (samples) of a feature matrix. The matrix must not contain missing
// values; they are excluded upstream.
func BuildKinship(m *FeatureMatrix) (*Kinship, error) {
	n := m.Cols()
	p := m.Rows()
	if n == 0 {
		return nil, fmt.Errorf("kinship: %w", ErrNoSamples)
	}
	x := mat.NewDense(n, p, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < p; i++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				return nil, fmt.Errorf("kinship: missing value at %q, %q", m.RowNames[i], m.ColNames[j])
			}
			x.Set(j, i, v)
		}
	}
	k := gram(x)
	ks := &Kinship{
		Samples: append([]string(nil), m.ColNames...),
		K:       k,
		index:   make(map[string]int, n),
	}
	for i, s := range ks.Samples {
		ks.index[s] = i
	}
	return ks, nil
}

// gram returns XXᵗ scaled so that mean(diag) == 1.
func gram(x *mat.Dense) *mat.SymDense {
	n, _ := x.Dims()
	var xxt mat.Dense
	xxt.Mul(x, x.T())
	trace := 0.0
	for i := 0; i < n; i++ {
		trace += xxt.At(i, i)
	}
	scale := float64(n) / trace
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k.SetSym(i, j, xxt.At(i, j)*scale)
		}
	}
	return k
}

// Subset returns the kinship restricted to the given samples, in the
// given order. All requested samples must be present.
func (k *Kinship) Subset(ids []string) (*Kinship, error) {
	idx := make([]int, len(ids))
	for i, id := range ids {
		j, ok := k.index[id]
		if !ok {
			return nil, fmt.Errorf("kinship: unknown sample %q", id)
		}
		idx[i] = j
	}
	sub := mat.NewSymDense(len(ids), nil)
	for i := range idx {
		for j := i; j < len(idx); j++ {
			sub.SetSym(i, j, k.K.At(idx[i], idx[j]))
		}
	}
	out := &Kinship{
		Samples: append([]string(nil), ids...),
		K:       sub,
		index:   make(map[string]int, len(ids)),
	}
	for i, s := range out.Samples {
		out.index[s] = i
	}
	return out, nil
}
