// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"gopkg.in/check.v1"
)

type robustSuite struct{}

var _ = check.Suite(&robustSuite{})

func (s *robustSuite) TestCheck(c *check.C) {
	rc := &RobustChecker{Solver: &LMMSolver{}, MinEvents: 5}
	recs, err := rc.Check(dabrafenib, "BRAF", toyResponse(), toyCRISPR(), toyGenomic())
	c.Assert(err, check.IsNil)
	c.Assert(recs, check.HasLen, toyGenomic().Rows())

	var braf *RobustAssociationRecord
	for i := range recs {
		r := &recs[i]
		c.Check(r.DrugID, check.Equals, dabrafenib.ID)
		c.Check(r.Gene, check.Equals, "BRAF")
		c.Check(r.NSamples, check.Equals, len(toySamples))
		if r.Genetic == "BRAF_mut" {
			braf = r
			c.Check(r.NEvents, check.Equals, 6)
		}
	}
	c.Assert(braf, check.NotNil)

	// the mutation that generated both phenotypes must explain both
	// sides at least as well as any other event
	for i := range recs {
		if recs[i].Genetic == "BRAF_mut" {
			continue
		}
		if !(braf.PValueDrug <= recs[i].PValueDrug) {
			c.Errorf("drug side: p(BRAF_mut)=%v above p(%s)=%v", braf.PValueDrug, recs[i].Genetic, recs[i].PValueDrug)
		}
		if !(braf.PValueCRISPR <= recs[i].PValueCRISPR) {
			c.Errorf("crispr side: p(BRAF_mut)=%v above p(%s)=%v", braf.PValueCRISPR, recs[i].Genetic, recs[i].PValueCRISPR)
		}
	}
}

func (s *robustSuite) TestCheckRestrictsToSharedSamples(c *check.C) {
	rc := &RobustChecker{Solver: &LMMSolver{}, MinEvents: 3}
	recs, err := rc.Check(paclitaxel, "MYC", toyResponse(), toyCRISPR(), toyGenomic())
	c.Assert(err, check.IsNil)
	for i := range recs {
		c.Check(recs[i].NSamples, check.Equals, 8) // two missing measurements
	}
}

func (s *robustSuite) TestCheckUnknownInputs(c *check.C) {
	rc := &RobustChecker{Solver: &LMMSolver{}, MinEvents: 5}
	_, err := rc.Check(DrugKey{ID: 1, Name: "Nope", Version: "RS"}, "BRAF", toyResponse(), toyCRISPR(), toyGenomic())
	c.Check(err, check.ErrorMatches, `robust .*: drug not in response matrix`)
	_, err = rc.Check(dabrafenib, "NOPE1", toyResponse(), toyCRISPR(), toyGenomic())
	c.Check(err, check.ErrorMatches, `robust .*: gene "NOPE1" not in effect matrix`)
}

func (s *robustSuite) TestCheckMinEventsTooHigh(c *check.C) {
	rc := &RobustChecker{Solver: &LMMSolver{}, MinEvents: 11}
	_, err := rc.Check(dabrafenib, "BRAF", toyResponse(), toyCRISPR(), toyGenomic())
	c.Check(err, check.ErrorMatches, `robust .*: no genomic events with >= 11 occurrences`)
}
