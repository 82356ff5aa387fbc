// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"errors"
	"math"

	"gopkg.in/check.v1"
)

type ppiSuite struct{}

var _ = check.Suite(&ppiSuite{})

func (s *ppiSuite) TestBuildDedupAndFilter(c *check.C) {
	p, err := BuildPPIGraph([]Interaction{
		{ProteinA: "A", ProteinB: "B", Score: 700},
		{ProteinA: "B", ProteinB: "A", Score: 950}, // duplicate pair, better score
		{ProteinA: "A", ProteinB: "A", Score: 999}, // self-interaction
		{ProteinA: "B", ProteinB: "C", Score: 100}, // below threshold
	}, nil, 500)
	c.Assert(err, check.IsNil)
	c.Check(p.NumNodes(), check.Equals, 2)
	c.Check(p.NumEdges(), check.Equals, 1)
	edges := p.Edges()
	c.Assert(edges, check.HasLen, 1)
	c.Check(edges[0].Score, check.Equals, 950.0)
}

func (s *ppiSuite) TestAliasResolution(c *check.C) {
	alias := map[string][]string{
		"9606.P1": {"BRAF"},
		"9606.P2": {"MAPK1"},
		"9606.P3": {"EGFR", "ERBB1"}, // ambiguous
	}
	p, err := BuildPPIGraph([]Interaction{
		{ProteinA: "9606.P1", ProteinB: "9606.P2", Score: 900},
		{ProteinA: "9606.P2", ProteinB: "9606.P3", Score: 900},
		{ProteinA: "9606.P1", ProteinB: "9606.P9", Score: 900}, // unresolved
	}, alias, 0)
	c.Assert(err, check.IsNil)
	c.Check(p.NumEdges(), check.Equals, 1)
	c.Check(p.HasGene("BRAF"), check.Equals, true)
	c.Check(p.HasGene("EGFR"), check.Equals, false)
}

func (s *ppiSuite) TestBuildEmptyGraphFails(c *check.C) {
	_, err := BuildPPIGraph([]Interaction{
		{ProteinA: "A", ProteinB: "B", Score: 10},
	}, nil, 500)
	c.Check(err, check.NotNil)
}

func (s *ppiSuite) TestDistances(c *check.C) {
	p := toyPPI()
	dist := p.Distances([]string{"BRAF"}, []string{"BRAF", "MAPK1", "EGFR", "KRAS", "CDK4", "TP53"})
	c.Check(dist["BRAF"], check.Equals, 0)
	c.Check(dist["MAPK1"], check.Equals, 1)
	c.Check(dist["EGFR"], check.Equals, 2)
	c.Check(dist["KRAS"], check.Equals, 3)
	_, reachable := dist["CDK4"] // other component
	c.Check(reachable, check.Equals, false)
	_, reachable = dist["TP53"] // not in graph at all
	c.Check(reachable, check.Equals, false)
}

func (s *ppiSuite) TestDistancesMultipleSeeds(c *check.C) {
	p := toyPPI()
	dist := p.Distances([]string{"BRAF", "KRAS"}, []string{"EGFR"})
	c.Check(dist["EGFR"], check.Equals, 1) // KRAS side wins
}

func (s *ppiSuite) TestAnnotateTargets(c *check.C) {
	recs := []AssociationRecord{
		{DrugID: dabrafenib.ID, Gene: "BRAF"},
		{DrugID: dabrafenib.ID, Gene: "MAPK1"},
		{DrugID: dabrafenib.ID, Gene: "EGFR"},
		{DrugID: dabrafenib.ID, Gene: "KRAS"},
		{DrugID: dabrafenib.ID, Gene: "CDK4"},
		{DrugID: 9999, Gene: "BRAF"}, // no curated targets
	}
	c.Assert(AnnotateTargets(recs, toyTargets(), toyPPI(), 3), check.IsNil)
	c.Check(recs[0].Target, check.Equals, "T")
	c.Check(recs[1].Target, check.Equals, "1")
	c.Check(recs[2].Target, check.Equals, "2")
	c.Check(recs[3].Target, check.Equals, ">=3")
	c.Check(recs[4].Target, check.Equals, "-")
	c.Check(recs[5].Target, check.Equals, "-")
	c.Check(recs[0].DrugTargets, check.Equals, "BRAF")
	c.Check(recs[5].DrugTargets, check.Equals, "")
}

func (s *ppiSuite) TestAnnotateTargetsNoCoverage(c *check.C) {
	recs := []AssociationRecord{{DrugID: dabrafenib.ID, Gene: "WRN"}}
	err := AnnotateTargets(recs, toyTargets(), toyPPI(), 3)
	c.Check(errors.Is(err, ErrNoGraphCoverage), check.Equals, true)
}

func (s *ppiSuite) TestAnnotateCorrelation(c *check.C) {
	p := toyPPI().AnnotateCorrelation(toyCRISPR())
	c.Check(p.NumEdges(), check.Equals, 4) // all toy genes are profiled
	for _, e := range p.Edges() {
		if math.IsNaN(e.Corr) || e.Corr < -1 || e.Corr > 1 {
			c.Errorf("edge %s-%s correlation %v", e.GeneA, e.GeneB, e.Corr)
		}
	}

	filtered := p.FilterCorrelation(2) // impossible cutoff
	c.Check(filtered.NumEdges(), check.Equals, 0)
	c.Check(p.NumEdges(), check.Equals, 4) // source graph untouched
}

func (s *ppiSuite) TestFilterScore(c *check.C) {
	p := toyPPI().FilterScore(915)
	c.Check(p.NumEdges(), check.Equals, 3)
	c.Check(p.HasGene("KRAS"), check.Equals, false)
}

func (s *ppiSuite) TestNeighborhood(c *check.C) {
	sub, err := brafNeighborhood(1)
	c.Assert(err, check.IsNil)
	c.Check(sub.HasGene("BRAF"), check.Equals, true)
	c.Check(sub.HasGene("MAPK1"), check.Equals, true)
	c.Check(sub.HasGene("EGFR"), check.Equals, false)
	c.Check(sub.NumEdges(), check.Equals, 1)

	sub, err = brafNeighborhood(2)
	c.Assert(err, check.IsNil)
	c.Check(sub.HasGene("EGFR"), check.Equals, true)
	c.Check(sub.HasGene("KRAS"), check.Equals, false)

	_, err = toyPPI().Neighborhood([]string{"WRN"}, 2)
	c.Check(errors.Is(err, ErrNoGraphCoverage), check.Equals, true)
}

func brafNeighborhood(radius int) (*PPIGraph, error) {
	return toyPPI().Neighborhood([]string{"BRAF"}, radius)
}
