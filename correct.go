// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownMethod is returned for a correction method name that is
// neither "bonferroni" nor "bh".
var ErrUnknownMethod = errors.New("unknown correction method")

// adjustPValues returns corrected p-values for one group of
// simultaneous tests, in the input order. NaN p-values stay NaN and do
// not count toward the multiplicity. Methods: "bonferroni",
// "bh" (Benjamini-Hochberg).
func adjustPValues(p []float64, method string) ([]float64, error) {
	out := make([]float64, len(p))
	var idx []int
	for i, v := range p {
		if math.IsNaN(v) {
			out[i] = math.NaN()
		} else {
			idx = append(idx, i)
		}
	}
	n := float64(len(idx))
	switch method {
	case "bonferroni":
		for _, i := range idx {
			out[i] = math.Min(p[i]*n, 1)
		}
	case "bh":
		sort.Slice(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })
		min := 1.0
		for rank := len(idx) - 1; rank >= 0; rank-- {
			q := p[idx[rank]] * n / float64(rank+1)
			if q < min {
				min = q
			}
			out[idx[rank]] = min
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	return out, nil
}

// CorrectAssociations fills the FDR field of every record, applying the
// correction independently within each drug identity group: the
// multiplicity universe is "all genes tested against this one drug",
// never all drug-gene pairs globally, so that per-drug significance
// does not depend on how many unrelated drugs were screened. Rows are
// never dropped.
func CorrectAssociations(recs []AssociationRecord, method string) error {
	groups := make(map[DrugKey][]int)
	for i := range recs {
		k := recs[i].Key()
		groups[k] = append(groups[k], i)
	}
	for _, idx := range groups {
		p := make([]float64, len(idx))
		for i, r := range idx {
			p[i] = recs[r].PValue
		}
		q, err := adjustPValues(p, method)
		if err != nil {
			return err
		}
		for i, r := range idx {
			recs[r].FDR = q[i]
		}
	}
	return nil
}

// CorrectRobustAssociations fills both corrected p-value columns of the
// robust-check table, each side independently, grouped by drug identity
// like CorrectAssociations.
func CorrectRobustAssociations(recs []RobustAssociationRecord, method string) error {
	groups := make(map[DrugKey][]int)
	for i := range recs {
		k := recs[i].Key()
		groups[k] = append(groups[k], i)
	}
	for _, idx := range groups {
		pd := make([]float64, len(idx))
		pc := make([]float64, len(idx))
		for i, r := range idx {
			pd[i] = recs[r].PValueDrug
			pc[i] = recs[r].PValueCRISPR
		}
		qd, err := adjustPValues(pd, method)
		if err != nil {
			return err
		}
		qc, err := adjustPValues(pc, method)
		if err != nil {
			return err
		}
		for i, r := range idx {
			recs[r].FDRDrug = qd[i]
			recs[r].FDRCRISPR = qc[i]
		}
	}
	return nil
}
