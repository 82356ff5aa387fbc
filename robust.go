// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RobustAssociationRecord is one (drug identity, gene, genomic event)
// row of the robust-check table. It carries two parallel effect/p-value
// pairs: the genomic event tested against the drug response, and the
// same event tested against the gene's knockout effect, sharing one
// genomic-derived kinship. Diverging sides indicate a genomic covariate
// that explains one phenotype but not the other.
type RobustAssociationRecord struct {
	DrugID       int     `csv:"DRUG_ID"`
	DrugName     string  `csv:"DRUG_NAME"`
	Version      string  `csv:"VERSION"`
	Gene         string  `csv:"GeneSymbol"`
	BetaDrug     float64 `csv:"beta_drug"`
	PValueDrug   float64 `csv:"pval_drug"`
	FDRDrug      float64 `csv:"fdr_drug"`
	BetaCRISPR   float64 `csv:"beta_crispr"`
	PValueCRISPR float64 `csv:"pval_crispr"`
	FDRCRISPR    float64 `csv:"fdr_crispr"`
	Genetic      string  `csv:"Genetic"`
	NEvents      int     `csv:"n_events"`
	NSamples     int     `csv:"n_samples"`
}

// Key returns the record's drug identity.
func (r *RobustAssociationRecord) Key() DrugKey {
	return DrugKey{ID: r.DrugID, Name: r.DrugName, Version: r.Version}
}

// RobustChecker re-tests one significant (drug, gene) association
// against a full genomic-event matrix.
type RobustChecker struct {
	Solver Solver
	// MinEvents excludes genomic features observed in fewer samples,
	// counted over the samples valid on both sides of the association.
	MinEvents int
}

// Check runs the two parallel scans for one association. drespo and
// crispr are the aligned response and gene-effect matrices; genomic is
// the binary event matrix (events × samples). Both scans share a
// kinship derived from the genomic matrix itself.
func (rc *RobustChecker) Check(drug DrugKey, gene string, drespo *ResponseMatrix, crispr, genomic *FeatureMatrix) ([]RobustAssociationRecord, error) {
	y1all, ok := drespo.Row(drug)
	if !ok {
		return nil, fmt.Errorf("robust %v: drug not in response matrix", drug)
	}
	var usable []string
	var y1 []float64
	for j, id := range drespo.ColNames {
		if math.IsNaN(y1all[j]) {
			continue
		}
		if _, ok := crispr.colIdx[id]; !ok || !genomic.hasColumn(id) {
			continue
		}
		usable = append(usable, id)
		y1 = append(y1, y1all[j])
	}
	n := len(usable)
	if n == 0 {
		return nil, fmt.Errorf("robust %v / %s: %w", drug, gene, ErrNoSamples)
	}

	crow, ok := crispr.Row(gene)
	if !ok {
		return nil, fmt.Errorf("robust %v: gene %q not in effect matrix", drug, gene)
	}
	y2 := make([]float64, n)
	for i, id := range usable {
		y2[i] = crow[crispr.colIdx[id]]
	}

	events := genomic.SubsetColumns(usable).FilterMinEvents(rc.MinEvents)
	if events.Rows() == 0 {
		return nil, fmt.Errorf("robust %v / %s: no genomic events with >= %d occurrences", drug, gene, rc.MinEvents)
	}
	x := mat.NewDense(n, events.Rows(), nil)
	counts := make([]int, events.Rows())
	for i := 0; i < events.Rows(); i++ {
		for j := 0; j < n; j++ {
			v := events.At(i, j)
			x.Set(j, i, v)
			if v != 0 {
				counts[i]++
			}
		}
	}

	k, err := BuildKinship(events)
	if err != nil {
		return nil, fmt.Errorf("robust %v / %s: %w", drug, gene, err)
	}
	m := constantColumn(n, 1)

	drugSide, err := rc.Solver.Scan(y1, x, m, k.K, events.RowNames)
	if err != nil {
		return nil, fmt.Errorf("robust %v / %s (drug side): %w", drug, gene, err)
	}
	crisprSide, err := rc.Solver.Scan(y2, x, m, k.K, events.RowNames)
	if err != nil {
		return nil, fmt.Errorf("robust %v / %s (crispr side): %w", drug, gene, err)
	}

	out := make([]RobustAssociationRecord, len(drugSide))
	for i := range drugSide {
		out[i] = RobustAssociationRecord{
			DrugID:       drug.ID,
			DrugName:     drug.Name,
			Version:      drug.Version,
			Gene:         gene,
			BetaDrug:     drugSide[i].Beta,
			PValueDrug:   drugSide[i].PValue,
			BetaCRISPR:   crisprSide[i].Beta,
			PValueCRISPR: crisprSide[i].PValue,
			Genetic:      events.RowNames[i],
			NEvents:      counts[i],
			NSamples:     n,
		}
	}
	return out, nil
}

func (m *FeatureMatrix) hasColumn(id string) bool {
	_, ok := m.colIdx[id]
	return ok
}
