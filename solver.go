// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"errors"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var chisquared = distuv.ChiSquared{K: 1, Src: rand.NewSource(rand.Uint64())}

// Assoc is one tested feature's result: effect size and uncorrected
// p-value, aligned to the design matrix column it was computed from.
type Assoc struct {
	Name   string
	Beta   float64
	PValue float64
}

// Solver fits the mixed model for one response vector. It tests every
// column of x as an independent fixed effect, sharing the covariates m
// and the single random effect k, and returns one effect size and one
// p-value per column. Numerical failure on a single column yields NaN
// for that column; failure to fit the null model is an error for the
// whole scan.
type Solver interface {
	Scan(y []float64, x, m *mat.Dense, k *mat.SymDense, names []string) ([]Assoc, error)
}

// LMMSolver fits a linear mixed model with one random effect by
// maximum likelihood. The kinship matrix is eigendecomposed once per
// scan; the ratio δ between residual and genetic variance is estimated
// on the covariate-only null model and shared by all tested columns.
// Each column's p-value comes from the χ²(1) likelihood-ratio statistic
// of the alternative model against the null.
type LMMSolver struct{}

func (s *LMMSolver) Scan(y []float64, x, m *mat.Dense, k *mat.SymDense, names []string) ([]Assoc, error) {
	n := len(y)
	if n == 0 {
		return nil, ErrNoSamples
	}
	var es mat.EigenSym
	if !es.Factorize(k, true) {
		return nil, errors.New("lmm: kinship eigendecomposition failed")
	}
	vals := es.Values(nil)
	for i, v := range vals {
		if v < 0 {
			vals[i] = 0
		}
	}
	var u mat.Dense
	es.VectorsTo(&u)

	ystar := rotateVector(&u, y)
	mstar := rotated(&u, m)
	xstar := rotated(&u, x)

	delta, llNull := fitNullDelta(ystar, mstar, vals)
	if math.IsNaN(llNull) {
		return nil, errors.New("lmm: null model fit failed, kinship singular or covariates collinear")
	}

	_, nx := xstar.Dims()
	_, nc := mstar.Dims()
	out := make([]Assoc, nx)
	alt := mat.NewDense(n, nc+1, nil)
	for j := 0; j < nx; j++ {
		for i := 0; i < n; i++ {
			for c := 0; c < nc; c++ {
				alt.Set(i, c, mstar.At(i, c))
			}
			alt.Set(i, nc, xstar.At(i, j))
		}
		ll, beta, ok := weightedFit(ystar, alt, vals, delta)
		rec := Assoc{Name: names[j], Beta: math.NaN(), PValue: math.NaN()}
		if ok {
			stat := 2 * (ll - llNull)
			if stat < 0 {
				stat = 0
			}
			rec.Beta = beta[nc]
			rec.PValue = chisquared.Survival(stat)
		}
		out[j] = rec
	}
	return out, nil
}

// rotateVector computes Uᵗy.
func rotateVector(u *mat.Dense, y []float64) []float64 {
	n := len(y)
	yv := mat.NewVecDense(n, append([]float64(nil), y...))
	out := mat.NewVecDense(n, nil)
	out.MulVec(u.T(), yv)
	return out.RawVector().Data
}

// rotated computes UᵗA.
func rotated(u *mat.Dense, a *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(u.T(), a)
	return &out
}

// fitNullDelta maximizes the null-model log-likelihood over δ with a
// coarse grid on ln δ followed by golden-section refinement, returning
// the chosen δ and the log-likelihood there.
func fitNullDelta(ystar []float64, mstar *mat.Dense, vals []float64) (float64, float64) {
	bestLg, bestLL := math.NaN(), math.Inf(-1)
	for lg := -8.0; lg <= 8.0; lg += 0.5 {
		ll, _, ok := weightedFit(ystar, mstar, vals, math.Exp(lg))
		if ok && ll > bestLL {
			bestLg, bestLL = lg, ll
		}
	}
	if math.IsNaN(bestLg) {
		return math.NaN(), math.NaN()
	}
	lo, hi := bestLg-0.5, bestLg+0.5
	const invPhi = 0.6180339887498949
	for it := 0; it < 40; it++ {
		a := hi - (hi-lo)*invPhi
		b := lo + (hi-lo)*invPhi
		lla, _, oka := weightedFit(ystar, mstar, vals, math.Exp(a))
		llb, _, okb := weightedFit(ystar, mstar, vals, math.Exp(b))
		if !oka || !okb {
			break
		}
		if lla > llb {
			hi = b
		} else {
			lo = a
		}
	}
	lg := (lo + hi) / 2
	ll, _, ok := weightedFit(ystar, mstar, vals, math.Exp(lg))
	if !ok || ll < bestLL {
		lg, ll = bestLg, bestLL
	}
	return math.Exp(lg), ll
}

// weightedFit solves the generalized least squares problem in the
// rotated basis with weights 1/(λᵢ+δ) and returns the profiled
// log-likelihood and coefficient vector. ok is false when the design is
// singular.
func weightedFit(ystar []float64, a *mat.Dense, vals []float64, delta float64) (ll float64, beta []float64, ok bool) {
	n, p := a.Dims()
	aw := mat.NewDense(n, p, nil)
	yw := mat.NewDense(n, 1, nil)
	logDet := 0.0
	for i := 0; i < n; i++ {
		d := vals[i] + delta
		logDet += math.Log(d)
		s := 1 / math.Sqrt(d)
		for j := 0; j < p; j++ {
			aw.Set(i, j, a.At(i, j)*s)
		}
		yw.Set(i, 0, ystar[i]*s)
	}
	var b mat.Dense
	if err := b.Solve(aw, yw); err != nil {
		return math.NaN(), nil, false
	}
	var fitted mat.Dense
	fitted.Mul(aw, &b)
	rss := 0.0
	for i := 0; i < n; i++ {
		r := yw.At(i, 0) - fitted.At(i, 0)
		rss += r * r
	}
	sigma2 := rss / float64(n)
	if sigma2 < 1e-300 {
		sigma2 = 1e-300
	}
	ll = -0.5 * (float64(n)*(math.Log(2*math.Pi*sigma2)+1) + logDet)
	beta = make([]float64, p)
	for j := 0; j < p; j++ {
		beta[j] = b.At(j, 0)
	}
	return ll, beta, true
}
