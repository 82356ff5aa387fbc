// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"gopkg.in/check.v1"
)

type drugsheetSuite struct{}

var _ = check.Suite(&drugsheetSuite{})

func toySheet() DrugSheet {
	return DrugSheet{
		1003: {Name: "Dabrafenib", Synonyms: []string{"GSK2118436"}, Targets: []string{"BRAF"}},
		1036: {Name: "GSK2118436", Targets: []string{"BRAF"}},
		1021: {Name: "Paclitaxel", Synonyms: []string{"Taxol"}},
		1062: {Name: "Trametinib", Targets: []string{"MAP2K2", "MAP2K1"}},
	}
}

func (s *drugsheetSuite) TestTargetMap(c *check.C) {
	tm := toySheet().TargetMap()
	c.Check(tm, check.HasLen, 3) // paclitaxel has no curated targets
	c.Check(tm[1003], check.DeepEquals, []string{"BRAF"})
	c.Check(tm[1062], check.DeepEquals, []string{"MAP2K1", "MAP2K2"}) // sorted
	_, ok := tm[1021]
	c.Check(ok, check.Equals, false)
}

func (s *drugsheetSuite) TestNames(c *check.C) {
	ds := toySheet()
	names := ds.Names(1003)
	c.Check(names, check.DeepEquals, map[string]bool{"Dabrafenib": true, "GSK2118436": true})
	c.Check(ds.Names(9999), check.IsNil)
}

func (s *drugsheetSuite) TestSameDrug(c *check.C) {
	ds := toySheet()
	c.Check(ds.SameDrug(1003, 1036), check.Equals, true) // synonym matches canonical name
	c.Check(ds.SameDrug(1003, 1021), check.Equals, false)
	c.Check(ds.SameDrug(1003, 9999), check.Equals, false)
}
