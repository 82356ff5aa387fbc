// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/check.v1"
)

type tableSuite struct{}

var _ = check.Suite(&tableSuite{})

func sampleAssociations() []AssociationRecord {
	return []AssociationRecord{
		{DrugID: 1003, DrugName: "Dabrafenib", Version: "RS", Gene: "BRAF", Beta: -1.25, PValue: 1e-8, FDR: 1e-7, NSamples: 10, DrugTargets: "BRAF", Target: "T"},
		{DrugID: 1021, DrugName: "Paclitaxel", Version: "v17", Gene: "MYC", Beta: 0.31, PValue: 0.2, FDR: 1, NSamples: 8, DrugTargets: "", Target: "-"},
	}
}

func (s *tableSuite) TestAssociationRoundTrip(c *check.C) {
	recs := sampleAssociations()
	for _, name := range []string{"assoc.csv", "assoc.csv.gz"} {
		filename := filepath.Join(c.MkDir(), name)
		c.Assert(WriteAssociations(filename, recs), check.IsNil)
		got, err := LoadAssociations(filename)
		c.Assert(err, check.IsNil)
		c.Check(got, check.DeepEquals, recs)
	}
}

func (s *tableSuite) TestHeaderColumns(c *check.C) {
	filename := filepath.Join(c.MkDir(), "assoc.csv")
	c.Assert(WriteAssociations(filename, sampleAssociations()), check.IsNil)
	buf, err := os.ReadFile(filename)
	c.Assert(err, check.IsNil)
	header := strings.SplitN(string(buf), "\n", 2)[0]
	c.Check(strings.TrimRight(header, "\r"), check.Equals,
		"DRUG_ID,DRUG_NAME,VERSION,GeneSymbol,beta,pval,fdr,n_samples,DRUG_TARGETS,target")
}

func (s *tableSuite) TestRobustRoundTrip(c *check.C) {
	recs := []RobustAssociationRecord{
		{DrugID: 1003, DrugName: "Dabrafenib", Version: "RS", Gene: "BRAF",
			BetaDrug: -1.2, PValueDrug: 1e-6, FDRDrug: 3e-6,
			BetaCRISPR: -0.9, PValueCRISPR: 1e-4, FDRCRISPR: 3e-4,
			Genetic: "BRAF_mut", NEvents: 6, NSamples: 10},
	}
	filename := filepath.Join(c.MkDir(), "robust.csv.gz")
	c.Assert(WriteRobustAssociations(filename, recs), check.IsNil)
	got, err := LoadRobustAssociations(filename)
	c.Assert(err, check.IsNil)
	c.Check(got, check.DeepEquals, recs)
}
