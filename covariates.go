// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-bowman/nlp"
	"gonum.org/v1/gonum/mat"
)

// CovariateColumn is one named per-sample covariate, keyed by sample
// identifier.
type CovariateColumn struct {
	Name   string
	Values map[string]float64
}

// BuildCovariateMatrix assembles covariate columns into a samples ×
// covariates matrix aligned to the given sample order, the layout the
// scanner consumes. Every sample must have a value in every column.
func BuildCovariateMatrix(samples []string, cols []CovariateColumn) (*FeatureMatrix, error) {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	m := NewFeatureMatrix(samples, names)
	for j, c := range cols {
		for i, id := range samples {
			v, ok := c.Values[id]
			if !ok || math.IsNaN(v) {
				return nil, fmt.Errorf("covariate %q: no value for sample %q", c.Name, id)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// OneHotColumns expands a discrete per-sample variable into one 0/1
// indicator column per observed level, in sorted level order.
func OneHotColumns(labels map[string]string) []CovariateColumn {
	levels := make(map[string]bool)
	for _, l := range labels {
		levels[l] = true
	}
	var names []string
	for l := range levels {
		names = append(names, l)
	}
	sort.Strings(names)
	out := make([]CovariateColumn, len(names))
	for i, level := range names {
		vals := make(map[string]float64, len(labels))
		for id, l := range labels {
			if l == level {
				vals[id] = 1
			} else {
				vals[id] = 0
			}
		}
		out[i] = CovariateColumn{Name: level, Values: vals}
	}
	return out
}

// PCAColumn extracts one principal-component score per sample from a
// feature matrix (features × samples), for use as a covariate
// absorbing screen-wide structure. Missing values are replaced by the
// feature's mean before fitting. component is zero-based.
func PCAColumn(name string, m *FeatureMatrix, component int) (CovariateColumn, error) {
	rows, cols := m.Rows(), m.Cols()
	if component < 0 || component >= cols {
		return CovariateColumn{}, fmt.Errorf("pca: component %d out of range", component)
	}
	dense := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		sum, n := 0.0, 0
		for j := 0; j < cols; j++ {
			if v := m.At(i, j); !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
		}
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				v = mean
			}
			dense.Set(i, j, v)
		}
	}
	transformer := nlp.NewPCA(component + 1)
	transformer.Fit(dense)
	pca, err := transformer.Transform(dense)
	if err != nil {
		return CovariateColumn{}, fmt.Errorf("pca: %w", err)
	}
	vals := make(map[string]float64, cols)
	for j, id := range m.ColNames {
		vals[id] = pca.At(component, j)
	}
	return CovariateColumn{Name: name, Values: vals}, nil
}
