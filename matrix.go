// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoSamples is returned when the intersection of sample
	// identifiers across input matrices (or the usable subset for one
	// scan) is empty.
	ErrNoSamples = errors.New("no usable samples")
	// ErrNoOverlap is returned when a matrix has no rows in common
	// with a reference gene set.
	ErrNoOverlap = errors.New("no overlap with reference gene set")
)

// DrugKey is the composite identity of one screened drug formulation.
// The same numeric id can map to different screened formulations, so a
// bare DRUG_ID is never used as a key.
type DrugKey struct {
	ID      int
	Name    string
	Version string
}

func (k DrugKey) String() string {
	return fmt.Sprintf("%d:%s:%s", k.ID, k.Name, k.Version)
}

// SampleSet is an ordered set of sample identifiers. Every matrix used
// downstream of an Engine is restricted to exactly this set, aligned by
// identifier.
type SampleSet struct {
	ids   []string
	index map[string]int
}

func NewSampleSet(ids []string) *SampleSet {
	s := &SampleSet{index: make(map[string]int, len(ids))}
	for _, id := range ids {
		if _, dup := s.index[id]; dup {
			continue
		}
		s.index[id] = len(s.ids)
		s.ids = append(s.ids, id)
	}
	return s
}

func (s *SampleSet) Len() int { return len(s.ids) }

func (s *SampleSet) IDs() []string {
	return append([]string(nil), s.ids...)
}

func (s *SampleSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Intersect returns the ordered intersection with the given identifier
// list, preserving s's order.
func (s *SampleSet) Intersect(ids []string) *SampleSet {
	in := make(map[string]bool, len(ids))
	for _, id := range ids {
		in[id] = true
	}
	var keep []string
	for _, id := range s.ids {
		if in[id] {
			keep = append(keep, id)
		}
	}
	return NewSampleSet(keep)
}

// FeatureMatrix is a numeric matrix with ordered row and column labels
// (features × samples for screen data, samples × covariates for
// covariate blocks). Missing values are NaN. Matrices are treated as
// immutable snapshots: all filters return new matrices.
type FeatureMatrix struct {
	RowNames []string
	ColNames []string
	rowIdx   map[string]int
	colIdx   map[string]int
	data     []float64 // row-major
}

func NewFeatureMatrix(rows, cols []string) *FeatureMatrix {
	m := &FeatureMatrix{
		RowNames: append([]string(nil), rows...),
		ColNames: append([]string(nil), cols...),
		rowIdx:   make(map[string]int, len(rows)),
		colIdx:   make(map[string]int, len(cols)),
		data:     make([]float64, len(rows)*len(cols)),
	}
	for i, r := range m.RowNames {
		m.rowIdx[r] = i
	}
	for j, c := range m.ColNames {
		m.colIdx[c] = j
	}
	return m
}

func (m *FeatureMatrix) Rows() int { return len(m.RowNames) }
func (m *FeatureMatrix) Cols() int { return len(m.ColNames) }

func (m *FeatureMatrix) At(i, j int) float64     { return m.data[i*len(m.ColNames)+j] }
func (m *FeatureMatrix) Set(i, j int, v float64) { m.data[i*len(m.ColNames)+j] = v }

func (m *FeatureMatrix) RowIndex(name string) (int, bool) {
	i, ok := m.rowIdx[name]
	return i, ok
}

// Row returns a copy of the named row's values.
func (m *FeatureMatrix) Row(name string) ([]float64, bool) {
	i, ok := m.rowIdx[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(m.ColNames))
	copy(out, m.data[i*len(m.ColNames):(i+1)*len(m.ColNames)])
	return out, true
}

// SubsetColumns returns a new matrix restricted to the given sample
// identifiers, aligned by identifier rather than position. Unknown
// identifiers are skipped.
func (m *FeatureMatrix) SubsetColumns(ids []string) *FeatureMatrix {
	var keep []string
	for _, id := range ids {
		if _, ok := m.colIdx[id]; ok {
			keep = append(keep, id)
		}
	}
	out := NewFeatureMatrix(m.RowNames, keep)
	for i := range m.RowNames {
		for j, id := range keep {
			out.Set(i, j, m.At(i, m.colIdx[id]))
		}
	}
	return out
}

// SubsetRows returns a new matrix restricted to the named rows, in the
// given order. Unknown names are skipped.
func (m *FeatureMatrix) SubsetRows(names []string) *FeatureMatrix {
	var keep []string
	for _, n := range names {
		if _, ok := m.rowIdx[n]; ok {
			keep = append(keep, n)
		}
	}
	out := NewFeatureMatrix(keep, m.ColNames)
	for i, n := range keep {
		src := m.rowIdx[n]
		for j := range m.ColNames {
			out.Set(i, j, m.At(src, j))
		}
	}
	return out
}

// FilterMinEvents keeps rows whose sum across samples is at least n.
// Intended for binary genomic-event matrices.
func (m *FeatureMatrix) FilterMinEvents(n int) *FeatureMatrix {
	var keep []string
	for i, name := range m.RowNames {
		sum := 0.0
		for j := range m.ColNames {
			if v := m.At(i, j); !math.IsNaN(v) {
				sum += v
			}
		}
		if sum >= float64(n) {
			keep = append(keep, name)
		}
	}
	return m.SubsetRows(keep)
}

// ScaleByControls rescales each sample (column) so that the median of
// the nonEssential control rows maps to 0 and the median of the
// essential control rows maps to -1. Control sets with no overlapping
// rows are a fatal input error.
func (m *FeatureMatrix) ScaleByControls(essential, nonEssential []string) (*FeatureMatrix, error) {
	ess := m.presentRows(essential)
	non := m.presentRows(nonEssential)
	if len(ess) == 0 {
		return nil, fmt.Errorf("essential gene set: %w", ErrNoOverlap)
	}
	if len(non) == 0 {
		return nil, fmt.Errorf("non-essential gene set: %w", ErrNoOverlap)
	}
	out := NewFeatureMatrix(m.RowNames, m.ColNames)
	for j := range m.ColNames {
		me := m.columnMedian(ess, j)
		mn := m.columnMedian(non, j)
		for i := range m.RowNames {
			out.Set(i, j, (m.At(i, j)-mn)/(mn-me))
		}
	}
	return out, nil
}

func (m *FeatureMatrix) presentRows(names []string) []int {
	var idx []int
	for _, n := range names {
		if i, ok := m.rowIdx[n]; ok {
			idx = append(idx, i)
		}
	}
	return idx
}

func (m *FeatureMatrix) columnMedian(rows []int, j int) float64 {
	var vals []float64
	for _, i := range rows {
		if v := m.At(i, j); !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	sort.Float64s(vals)
	n := len(vals)
	switch {
	case n == 0:
		return math.NaN()
	case n%2 == 1:
		return vals[n/2]
	default:
		return (vals[n/2-1] + vals[n/2]) / 2
	}
}

// CorrelateWith computes, for every row, the Pearson correlation with
// an external per-sample profile keyed by sample identifier. Sample
// pairs where either side is missing are skipped.
func (m *FeatureMatrix) CorrelateWith(profile map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m.RowNames))
	for i, name := range m.RowNames {
		var xs, ys []float64
		for j, id := range m.ColNames {
			p, ok := profile[id]
			if !ok || math.IsNaN(p) {
				continue
			}
			v := m.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			xs = append(xs, v)
			ys = append(ys, p)
		}
		if len(xs) < 3 {
			continue
		}
		out[name] = stat.Correlation(xs, ys, nil)
	}
	return out
}

// ResponseMatrix is a drug-response matrix: one row per screened drug
// formulation, one column per sample, values on the configured scale
// (ln IC50 or AUC). Missing values are NaN.
type ResponseMatrix struct {
	Drugs    []DrugKey
	ColNames []string
	drugIdx  map[DrugKey]int
	colIdx   map[string]int
	data     []float64 // row-major
}

func NewResponseMatrix(drugs []DrugKey, cols []string) *ResponseMatrix {
	m := &ResponseMatrix{
		Drugs:    append([]DrugKey(nil), drugs...),
		ColNames: append([]string(nil), cols...),
		drugIdx:  make(map[DrugKey]int, len(drugs)),
		colIdx:   make(map[string]int, len(cols)),
		data:     make([]float64, len(drugs)*len(cols)),
	}
	for i := range m.data {
		m.data[i] = math.NaN()
	}
	for i, d := range m.Drugs {
		m.drugIdx[d] = i
	}
	for j, c := range m.ColNames {
		m.colIdx[c] = j
	}
	return m
}

func (m *ResponseMatrix) At(i, j int) float64     { return m.data[i*len(m.ColNames)+j] }
func (m *ResponseMatrix) Set(i, j int, v float64) { m.data[i*len(m.ColNames)+j] = v }

// Row returns a copy of one drug's response values across all samples.
func (m *ResponseMatrix) Row(k DrugKey) ([]float64, bool) {
	i, ok := m.drugIdx[k]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(m.ColNames))
	copy(out, m.data[i*len(m.ColNames):(i+1)*len(m.ColNames)])
	return out, true
}

// SubsetColumns returns a new matrix restricted to the given sample
// identifiers, aligned by identifier.
func (m *ResponseMatrix) SubsetColumns(ids []string) *ResponseMatrix {
	var keep []string
	for _, id := range ids {
		if _, ok := m.colIdx[id]; ok {
			keep = append(keep, id)
		}
	}
	out := NewResponseMatrix(m.Drugs, keep)
	for i := range m.Drugs {
		for j, id := range keep {
			out.Set(i, j, m.At(i, m.colIdx[id]))
		}
	}
	return out
}

// FilterMinMeasurements keeps drugs measured in more than frac of the
// samples.
func (m *ResponseMatrix) FilterMinMeasurements(frac float64) *ResponseMatrix {
	return m.filterDrugs(func(i int) bool {
		n := 0
		for j := range m.ColNames {
			if !math.IsNaN(m.At(i, j)) {
				n++
			}
		}
		return float64(n) > frac*float64(len(m.ColNames))
	})
}

// DropCombinations removes drug combinations, identified by " + " in
// the screened name.
func (m *ResponseMatrix) DropCombinations() *ResponseMatrix {
	return m.filterDrugs(func(i int) bool {
		return !strings.Contains(m.Drugs[i].Name, " + ")
	})
}

func (m *ResponseMatrix) filterDrugs(keep func(i int) bool) *ResponseMatrix {
	var drugs []DrugKey
	var rows []int
	for i, d := range m.Drugs {
		if keep(i) {
			drugs = append(drugs, d)
			rows = append(rows, i)
		}
	}
	out := NewResponseMatrix(drugs, m.ColNames)
	for oi, i := range rows {
		for j := range m.ColNames {
			out.Set(oi, j, m.At(i, j))
		}
	}
	return out
}
