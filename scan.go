// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// AssociationRecord is one (drug identity, gene) result row. The csv
// tags define the persisted table layout.
type AssociationRecord struct {
	DrugID      int     `csv:"DRUG_ID"`
	DrugName    string  `csv:"DRUG_NAME"`
	Version     string  `csv:"VERSION"`
	Gene        string  `csv:"GeneSymbol"`
	Beta        float64 `csv:"beta"`
	PValue      float64 `csv:"pval"`
	FDR         float64 `csv:"fdr"`
	NSamples    int     `csv:"n_samples"`
	DrugTargets string  `csv:"DRUG_TARGETS"`
	Target      string  `csv:"target"`
}

// Key returns the record's drug identity.
func (r *AssociationRecord) Key() DrugKey {
	return DrugKey{ID: r.DrugID, Name: r.DrugName, Version: r.Version}
}

// AssociationScanner fits the mixed model for one drug against every
// gene in a design matrix.
type AssociationScanner struct {
	Solver Solver
	// AddIntercept synthesizes an intercept-only covariate column when
	// no covariate matrix is supplied; when false and no covariates are
	// given, a degenerate zero column is used instead.
	AddIntercept bool
}

// Scan restricts the response to samples with a non-missing value,
// restricts the design, covariates and kinship to that same subset,
// standardizes the design and covariate columns, and delegates to the
// solver. The response is left on its natural scale. x is genes ×
// samples; covar, when non-nil, is samples × covariates. A response
// with zero usable samples is a fatal configuration error.
func (s *AssociationScanner) Scan(drug DrugKey, y []float64, x *FeatureMatrix, covar *FeatureMatrix, k *Kinship) ([]AssociationRecord, error) {
	if len(y) != x.Cols() {
		return nil, fmt.Errorf("scan %v: response length %d != %d samples", drug, len(y), x.Cols())
	}
	var usable []string
	var yv []float64
	for j, id := range x.ColNames {
		if !math.IsNaN(y[j]) {
			usable = append(usable, id)
			yv = append(yv, y[j])
		}
	}
	n := len(usable)
	if n == 0 {
		return nil, fmt.Errorf("scan %v: %w", drug, ErrNoSamples)
	}

	xs := x.SubsetColumns(usable)
	xd := mat.NewDense(n, xs.Rows(), nil)
	for i := 0; i < xs.Rows(); i++ {
		for j := 0; j < n; j++ {
			xd.Set(j, i, xs.At(i, j))
		}
	}
	standardizeColumns(xd)

	var md *mat.Dense
	switch {
	case covar != nil:
		md = mat.NewDense(n, covar.Cols(), nil)
		for i, id := range usable {
			src, ok := covar.RowIndex(id)
			if !ok {
				return nil, fmt.Errorf("scan %v: sample %q missing from covariates", drug, id)
			}
			for c := 0; c < covar.Cols(); c++ {
				md.Set(i, c, covar.At(src, c))
			}
		}
		standardizeColumns(md)
		if s.AddIntercept {
			md = appendConstantColumn(md, 1)
		}
	case s.AddIntercept:
		md = constantColumn(n, 1)
	default:
		md = constantColumn(n, 0)
	}

	ks, err := k.Subset(usable)
	if err != nil {
		return nil, fmt.Errorf("scan %v: %w", drug, err)
	}

	assocs, err := s.Solver.Scan(yv, xd, md, ks.K, xs.RowNames)
	if err != nil {
		return nil, fmt.Errorf("scan %v: %w", drug, err)
	}
	out := make([]AssociationRecord, len(assocs))
	for i, a := range assocs {
		out[i] = AssociationRecord{
			DrugID:   drug.ID,
			DrugName: drug.Name,
			Version:  drug.Version,
			Gene:     a.Name,
			Beta:     a.Beta,
			PValue:   a.PValue,
			NSamples: n,
		}
	}
	return out, nil
}

// standardizeColumns rescales each column to zero mean and unit
// variance in place. Constant columns are left centered only.
func standardizeColumns(a *mat.Dense) {
	n, p := a.Dims()
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, a)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		for i := 0; i < n; i++ {
			a.Set(i, j, (col[i]-mean)/std)
		}
	}
}

func constantColumn(n int, v float64) *mat.Dense {
	m := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		m.Set(i, 0, v)
	}
	return m
}

func appendConstantColumn(a *mat.Dense, v float64) *mat.Dense {
	n, p := a.Dims()
	out := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			out.Set(i, j, a.At(i, j))
		}
		out.Set(i, p, v)
	}
	return out
}
