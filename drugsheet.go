// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"sort"

	log "github.com/sirupsen/logrus"
)

// DrugTargetMap maps a drug identifier to its curated target gene
// symbols, sorted. Immutable once loaded for a run.
type DrugTargetMap map[int][]string

// DrugAnnotation is one drug's curated metadata.
type DrugAnnotation struct {
	Name     string
	Synonyms []string
	Targets  []string
}

// DrugSheet is the curated drug list keyed by drug identifier.
type DrugSheet map[int]DrugAnnotation

// TargetMap extracts the drug→target mapping, dropping drugs without
// curated targets.
func (ds DrugSheet) TargetMap() DrugTargetMap {
	out := make(DrugTargetMap, len(ds))
	for id, a := range ds {
		if len(a.Targets) == 0 {
			continue
		}
		t := append([]string(nil), a.Targets...)
		sort.Strings(t)
		out[id] = t
	}
	return out
}

// Names returns a drug's canonical name plus synonyms. An identifier
// missing from the sheet is a data-quality warning and yields nil.
func (ds DrugSheet) Names(id int) map[string]bool {
	a, ok := ds[id]
	if !ok {
		log.Warnf("drug id %d not in drug list", id)
		return nil
	}
	names := map[string]bool{a.Name: true}
	for _, s := range a.Synonyms {
		names[s] = true
	}
	return names
}

// SameDrug reports whether two drug identifiers represent the same
// compound, by name or synonym overlap.
func (ds DrugSheet) SameDrug(id1, id2 int) bool {
	n1 := ds.Names(id1)
	n2 := ds.Names(id2)
	if n1 == nil || n2 == nil {
		return false
	}
	for n := range n1 {
		if n2[n] {
			return true
		}
	}
	return false
}
