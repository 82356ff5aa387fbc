// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AnnotateTargets fills the DRUG_TARGETS and target columns of a scan's
// records in place. For each (drug, gene) pair the target annotation
// is:
//
//	"-"            drug has no curated targets, or the gene is absent
//	               from the graph or unreachable from every target
//	"T"            the gene is itself one of the drug's targets
//	"1".."k-1"     shortest-path distance, below the threshold k
//	">=k"          reachable, but at or beyond the threshold
//
// The distance for a drug with several targets is the minimum over all
// of them. A graph sharing no nodes with the scanned gene set is a
// fatal input error.
func AnnotateTargets(recs []AssociationRecord, targets DrugTargetMap, ppi *PPIGraph, threshold int) error {
	geneset := make(map[string]bool)
	covered := false
	for i := range recs {
		geneset[recs[i].Gene] = true
		if ppi.HasGene(recs[i].Gene) {
			covered = true
		}
	}
	if len(recs) > 0 && !covered {
		return fmt.Errorf("target annotation: %w", ErrNoGraphCoverage)
	}
	genes := make([]string, 0, len(geneset))
	for g := range geneset {
		genes = append(genes, g)
	}

	distances := make(map[int]map[string]int)
	for i := range recs {
		rec := &recs[i]
		tg := targets[rec.DrugID]
		if len(tg) == 0 {
			rec.DrugTargets = ""
			rec.Target = "-"
			continue
		}
		rec.DrugTargets = strings.Join(tg, ";")
		dist, ok := distances[rec.DrugID]
		if !ok {
			dist = ppi.Distances(tg, genes)
			distances[rec.DrugID] = dist
		}
		rec.Target = targetAnnotation(tg, rec.Gene, dist, threshold)
	}
	return nil
}

func targetAnnotation(targets []string, gene string, dist map[string]int, threshold int) string {
	for _, t := range targets {
		if t == gene {
			return "T"
		}
	}
	d, ok := dist[gene]
	if !ok {
		return "-"
	}
	return distanceString(float64(d), threshold)
}

func distanceString(d float64, threshold int) string {
	switch {
	case d == 0:
		return "T"
	case math.IsInf(d, 1):
		return "-"
	case d < float64(threshold):
		return strconv.Itoa(int(d))
	default:
		return fmt.Sprintf(">=%d", threshold)
	}
}
