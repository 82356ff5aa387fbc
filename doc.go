// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package drugassoc discovers statistical associations between
// gene-knockout fitness effects and drug-response measurements across a
// panel of screened samples, and contextualizes each association
// against a protein-protein interaction network.
//
// The pipeline fits one linear mixed model per (drug, gene) pair with a
// sample-relatedness kinship matrix as the random effect, corrects
// p-values independently within each drug's result group, annotates
// each hit with its shortest-path distance to the drug's known targets,
// and re-tests significant hits against a genomic-event matrix to
// separate direct from confounded effects.
package drugassoc
