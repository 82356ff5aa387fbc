// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/pgzip"
)

// WriteAssociations persists a scan's result table, one row per (drug
// identity, gene). A filename ending in .gz is gzip-compressed.
func WriteAssociations(filename string, recs []AssociationRecord) error {
	return writeTable(filename, &recs)
}

// LoadAssociations reads a table written by WriteAssociations.
func LoadAssociations(filename string) ([]AssociationRecord, error) {
	var recs []AssociationRecord
	if err := readTable(filename, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// WriteRobustAssociations persists a robust-check table, one row per
// (drug identity, gene, genomic event).
func WriteRobustAssociations(filename string, recs []RobustAssociationRecord) error {
	return writeTable(filename, &recs)
}

// LoadRobustAssociations reads a table written by
// WriteRobustAssociations.
func LoadRobustAssociations(filename string) ([]RobustAssociationRecord, error) {
	var recs []RobustAssociationRecord
	if err := readTable(filename, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func writeTable(filename string, recs interface{}) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	var w io.Writer = bufw
	var gzw *pgzip.Writer
	if strings.HasSuffix(filename, ".gz") {
		gzw = pgzip.NewWriter(bufw)
		w = gzw
	}
	if err := gocsv.Marshal(recs, w); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	if gzw != nil {
		if err := gzw.Close(); err != nil {
			return fmt.Errorf("write %s: %w", filename, err)
		}
	}
	if err := bufw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return f.Close()
}

func readTable(filename string, recs interface{}) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(filename, ".gz") {
		gzr, err := pgzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("read %s: %w", filename, err)
		}
		defer gzr.Close()
		r = gzr
	}
	if err := gocsv.Unmarshal(r, recs); err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	return nil
}
