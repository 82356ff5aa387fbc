// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"math"

	"github.com/kshedden/statmodel/glm"
	"github.com/kshedden/statmodel/statmodel"
	"gonum.org/v1/gonum/mat"
)

var glmConfig = &glm.Config{
	Family:         glm.NewFamily(glm.BinomialFamily),
	FitMethod:      "IRLS",
	ConcurrentIRLS: 1000,
	Log:            stdlog.New(io.Discard, "", 0),
}

// GLMSolver is the binomial-link scan path: logistic regression with
// the kinship matrix's leading eigenvectors appended to the fixed
// covariates in place of an explicit random effect. The response must
// be coded 0/1. P-values come from the likelihood-ratio test of the
// model with the tested column against the covariate-only model.
type GLMSolver struct {
	// Components is the number of kinship eigenvectors used as
	// covariates (default 10, capped at sample count - 1).
	Components int
}

func (s *GLMSolver) Scan(y []float64, x, m *mat.Dense, k *mat.SymDense, names []string) ([]Assoc, error) {
	n := len(y)
	if n == 0 {
		return nil, ErrNoSamples
	}
	ncomp := s.Components
	if ncomp <= 0 {
		ncomp = 10
	}
	if ncomp > n-1 {
		ncomp = n - 1
	}

	var es mat.EigenSym
	if !es.Factorize(k, true) {
		return nil, errors.New("glm: kinship eigendecomposition failed")
	}
	var u mat.Dense
	es.VectorsTo(&u)

	outcome := append([]float64(nil), y...)
	data := [][]statmodel.Dtype{outcome}
	dnames := []string{"outcome"}
	_, nc := m.Dims()
	for c := 0; c < nc; c++ {
		col := make([]statmodel.Dtype, n)
		for i := 0; i < n; i++ {
			col[i] = m.At(i, c)
		}
		data = append(data, col)
		dnames = append(dnames, fmt.Sprintf("covar%d", c))
	}
	// Eigenvalues come back in ascending order, so the leading
	// vectors are the last columns.
	for c := 0; c < ncomp; c++ {
		col := make([]statmodel.Dtype, n)
		for i := 0; i < n; i++ {
			col[i] = u.At(i, n-1-c)
		}
		data = append(data, col)
		dnames = append(dnames, fmt.Sprintf("kpc%d", c))
	}

	dataset := statmodel.NewDataset(data, dnames)
	model, err := glm.NewGLM(dataset, "outcome", dnames[1:], glmConfig)
	if err != nil {
		return nil, fmt.Errorf("glm: null model: %w", err)
	}
	logNull := model.Fit().LogLike()

	_, nx := x.Dims()
	out := make([]Assoc, nx)
	for j := 0; j < nx; j++ {
		variant := make([]statmodel.Dtype, n)
		for i := 0; i < n; i++ {
			variant[i] = x.At(i, j)
		}
		beta, p := fitVariantGLM(data, dnames, variant, logNull)
		out[j] = Assoc{Name: names[j], Beta: beta, PValue: p}
	}
	return out, nil
}

func fitVariantGLM(data [][]statmodel.Dtype, dnames []string, variant []statmodel.Dtype, logNull float64) (beta, p float64) {
	defer func() {
		if recover() != nil {
			// typically "matrix singular or near-singular with
			// condition number +Inf"
			beta, p = math.NaN(), math.NaN()
		}
	}()
	adata := append([][]statmodel.Dtype{data[0], variant}, data[1:]...)
	anames := append([]string{"outcome", "variant"}, dnames[1:]...)
	dataset := statmodel.NewDataset(adata, anames)
	model, err := glm.NewGLM(dataset, "outcome", anames[1:], glmConfig)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	result := model.Fit()
	stat := -2 * (logNull - result.LogLike())
	if stat < 0 {
		stat = 0
	}
	return result.Params()[0], chisquared.Survival(stat)
}
