// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"errors"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
	"gonum.org/v1/gonum/stat"
)

// ErrNoGraphCoverage is returned when a PPI graph shares no nodes with
// the gene set being annotated.
var ErrNoGraphCoverage = errors.New("no genes overlapping with PPI network")

// Interaction is one pairwise record from an interaction source such as
// a STRING or BioGRID dump, identified by protein or gene symbol with
// an optional confidence score.
type Interaction struct {
	ProteinA string
	ProteinB string
	Score    float64
}

// PPIEdge is one deduplicated undirected edge of a built graph.
type PPIEdge struct {
	GeneA string
	GeneB string
	Score float64
	// Corr is the Pearson correlation between the two genes' effect
	// profiles; NaN until AnnotateCorrelation has run.
	Corr float64
}

type edgeKey struct{ a, b int64 }

func orderedKey(a, b int64) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// PPIGraph is an undirected protein-protein interaction graph keyed by
// gene symbol. Graphs are never mutated after construction: every
// filter returns a new graph.
type PPIGraph struct {
	g     *simple.UndirectedGraph
	ids   map[string]int64
	names map[int64]string
	edges map[edgeKey]*PPIEdge
}

func newPPIGraph() *PPIGraph {
	return &PPIGraph{
		g:     simple.NewUndirectedGraph(),
		ids:   make(map[string]int64),
		names: make(map[int64]string),
		edges: make(map[edgeKey]*PPIEdge),
	}
}

func (p *PPIGraph) node(symbol string) int64 {
	if id, ok := p.ids[symbol]; ok {
		return id
	}
	id := int64(len(p.ids))
	p.ids[symbol] = id
	p.names[id] = symbol
	p.g.AddNode(simple.Node(id))
	return id
}

func (p *PPIGraph) addEdge(a, b string, score, corr float64) {
	ia, ib := p.node(a), p.node(b)
	key := orderedKey(ia, ib)
	if e, ok := p.edges[key]; ok {
		// duplicate interaction pairs keep the best score
		if score > e.Score {
			e.Score = score
		}
		return
	}
	ga, gb := p.names[key.a], p.names[key.b]
	p.edges[key] = &PPIEdge{GeneA: ga, GeneB: gb, Score: score, Corr: corr}
	p.g.SetEdge(p.g.NewEdge(simple.Node(key.a), simple.Node(key.b)))
}

// BuildPPIGraph builds a graph from pairwise interactions, resolving
// protein identifiers to gene symbols through the alias table. Aliases
// mapping one protein to several symbols are ambiguous and dropped
// rather than guessed; unresolved identifiers are dropped too. Both are
// data-quality warnings, not errors. Interactions below minScore and
// self-interactions are skipped. A nil alias table means the
// identifiers are already gene symbols.
func BuildPPIGraph(interactions []Interaction, alias map[string][]string, minScore float64) (*PPIGraph, error) {
	resolve := func(protein string) (string, bool) {
		if alias == nil {
			return protein, true
		}
		symbols := alias[protein]
		if len(symbols) != 1 {
			return "", false
		}
		return symbols[0], true
	}
	p := newPPIGraph()
	var unresolved, ambiguous int
	for _, in := range interactions {
		if in.Score < minScore {
			continue
		}
		a, oka := resolve(in.ProteinA)
		b, okb := resolve(in.ProteinB)
		if !oka || !okb {
			if alias[in.ProteinA] == nil || alias[in.ProteinB] == nil {
				unresolved++
			} else {
				ambiguous++
			}
			continue
		}
		if a == b {
			continue
		}
		p.addEdge(a, b, in.Score, math.NaN())
	}
	if unresolved > 0 || ambiguous > 0 {
		log.Warnf("ppi: dropped %d interactions with unresolved and %d with ambiguous protein aliases", unresolved, ambiguous)
	}
	if len(p.edges) == 0 {
		return nil, errors.New("ppi: no interactions left after alias resolution and score filter")
	}
	log.Infof("ppi: %d nodes, %d edges", len(p.ids), len(p.edges))
	return p, nil
}

// NumNodes returns the number of gene symbols in the graph.
func (p *PPIGraph) NumNodes() int { return len(p.ids) }

// NumEdges returns the number of deduplicated edges.
func (p *PPIGraph) NumEdges() int { return len(p.edges) }

// HasGene reports whether the symbol is a node of the graph.
func (p *PPIGraph) HasGene(symbol string) bool {
	_, ok := p.ids[symbol]
	return ok
}

// Genes returns the node symbols in sorted order.
func (p *PPIGraph) Genes() []string {
	out := make([]string, 0, len(p.ids))
	for s := range p.ids {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Edges returns the edge list sorted by (GeneA, GeneB).
func (p *PPIGraph) Edges() []PPIEdge {
	out := make([]PPIEdge, 0, len(p.edges))
	for _, e := range p.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GeneA != out[j].GeneA {
			return out[i].GeneA < out[j].GeneA
		}
		return out[i].GeneB < out[j].GeneB
	})
	return out
}

// Distances returns, for every reachable gene in targets, the minimum
// shortest-path hop count from any of the seed genes. Seeds absent from
// the graph are ignored; unreachable targets are absent from the result
// (infinite distance).
func (p *PPIGraph) Distances(seeds, targets []string) map[string]int {
	want := make(map[int64]string, len(targets))
	for _, t := range targets {
		if id, ok := p.ids[t]; ok {
			want[id] = t
		}
	}
	dist := make(map[string]int)
	for _, s := range seeds {
		id, ok := p.ids[s]
		if !ok {
			continue
		}
		bfs := traverse.BreadthFirst{}
		bfs.Walk(p.g, simple.Node(id), func(n graph.Node, d int) bool {
			if sym, ok := want[n.ID()]; ok {
				if cur, seen := dist[sym]; !seen || d < cur {
					dist[sym] = d
				}
			}
			return false
		})
	}
	return dist
}

// AnnotateCorrelation returns a new graph restricted to genes present
// in the profile matrix (genes × samples), with every surviving edge
// annotated by the Pearson correlation between its two genes' profiles.
func (p *PPIGraph) AnnotateCorrelation(profiles *FeatureMatrix) *PPIGraph {
	out := newPPIGraph()
	for _, e := range p.edges {
		a, oka := profiles.Row(e.GeneA)
		b, okb := profiles.Row(e.GeneB)
		if !oka || !okb {
			continue
		}
		out.addEdge(e.GeneA, e.GeneB, e.Score, pairCorrelation(a, b))
	}
	return out
}

func pairCorrelation(a, b []float64) float64 {
	var xs, ys []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	if len(xs) < 3 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// FilterScore returns a new graph keeping edges with confidence score
// of at least minScore.
func (p *PPIGraph) FilterScore(minScore float64) *PPIGraph {
	out := newPPIGraph()
	for _, e := range p.edges {
		if e.Score >= minScore {
			out.addEdge(e.GeneA, e.GeneB, e.Score, e.Corr)
		}
	}
	return out
}

// FilterCorrelation returns a new graph keeping edges whose absolute
// correlation annotation is at least minAbs. Unannotated edges are
// dropped.
func (p *PPIGraph) FilterCorrelation(minAbs float64) *PPIGraph {
	out := newPPIGraph()
	for _, e := range p.edges {
		if !math.IsNaN(e.Corr) && math.Abs(e.Corr) >= minAbs {
			out.addEdge(e.GeneA, e.GeneB, e.Score, e.Corr)
		}
	}
	return out
}

// Neighborhood returns the induced subgraph over all nodes within
// radius hops of any seed gene, the seeds included. Seeds absent from
// the graph are ignored; at least one must be present.
func (p *PPIGraph) Neighborhood(seeds []string, radius int) (*PPIGraph, error) {
	keep := make(map[int64]bool)
	found := false
	for _, s := range seeds {
		id, ok := p.ids[s]
		if !ok {
			continue
		}
		found = true
		bfs := traverse.BreadthFirst{}
		bfs.Walk(p.g, simple.Node(id), func(n graph.Node, d int) bool {
			if d > radius {
				return true
			}
			keep[n.ID()] = true
			return false
		})
	}
	if !found {
		return nil, ErrNoGraphCoverage
	}
	out := newPPIGraph()
	for key, e := range p.edges {
		if keep[key.a] && keep[key.b] {
			out.addEdge(e.GeneA, e.GeneB, e.Score, e.Corr)
		}
	}
	return out, nil
}
