// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kshedden/gonpy"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// WriteMatrixNpy writes a feature matrix as base.npy (float64, rows ×
// cols) with row and column labels in sibling csv files, the layout
// consumed by ReadMatrixNpy.
func WriteMatrixNpy(base string, m *FeatureMatrix) error {
	f, err := os.OpenFile(base+".npy", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return fmt.Errorf("gonpy.NewWriter: %w", err)
	}
	npw.Shape = []int{m.Rows(), m.Cols()}
	if err = npw.WriteFloat64(m.data); err != nil {
		return fmt.Errorf("WriteFloat64: %w", err)
	}
	if err = bufw.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = writeLabels(base+".rows.csv", m.RowNames); err != nil {
		return err
	}
	return writeLabels(base+".columns.csv", m.ColNames)
}

// ReadMatrixNpy loads a matrix written by WriteMatrixNpy.
func ReadMatrixNpy(base string) (*FeatureMatrix, error) {
	f, err := os.Open(base + ".npy")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	npy, err := gonpy.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("gonpy.NewReader: %w", err)
	}
	data, err := npy.GetFloat64()
	if err != nil {
		return nil, fmt.Errorf("GetFloat64: %w", err)
	}
	if len(npy.Shape) != 2 {
		return nil, fmt.Errorf("%s.npy: expected 2 dimensions, got %d", base, len(npy.Shape))
	}
	rows, err := readLabels(base + ".rows.csv")
	if err != nil {
		return nil, err
	}
	cols, err := readLabels(base + ".columns.csv")
	if err != nil {
		return nil, err
	}
	if len(rows) != npy.Shape[0] || len(cols) != npy.Shape[1] {
		return nil, fmt.Errorf("%s: labels (%d×%d) do not match npy shape (%d×%d)", base, len(rows), len(cols), npy.Shape[0], npy.Shape[1])
	}
	m := NewFeatureMatrix(rows, cols)
	copy(m.data, data)
	return m, nil
}

// WriteResponseNpy writes a drug-response matrix as base.npy with the
// composite drug keys in base.drugs.csv and samples in
// base.columns.csv.
func WriteResponseNpy(base string, m *ResponseMatrix) error {
	f, err := os.OpenFile(base+".npy", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return fmt.Errorf("gonpy.NewWriter: %w", err)
	}
	npw.Shape = []int{len(m.Drugs), len(m.ColNames)}
	if err = npw.WriteFloat64(m.data); err != nil {
		return fmt.Errorf("WriteFloat64: %w", err)
	}
	if err = bufw.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	df, err := os.OpenFile(base+".drugs.csv", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer df.Close()
	csvw := csv.NewWriter(df)
	for i, d := range m.Drugs {
		if err = csvw.Write([]string{strconv.Itoa(i), strconv.Itoa(d.ID), d.Name, d.Version}); err != nil {
			return err
		}
	}
	csvw.Flush()
	if err = csvw.Error(); err != nil {
		return err
	}
	if err = df.Close(); err != nil {
		return err
	}
	return writeLabels(base+".columns.csv", m.ColNames)
}

// ReadResponseNpy loads a matrix written by WriteResponseNpy.
func ReadResponseNpy(base string) (*ResponseMatrix, error) {
	f, err := os.Open(base + ".npy")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	npy, err := gonpy.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("gonpy.NewReader: %w", err)
	}
	data, err := npy.GetFloat64()
	if err != nil {
		return nil, fmt.Errorf("GetFloat64: %w", err)
	}
	drugs, err := readDrugLabels(base + ".drugs.csv")
	if err != nil {
		return nil, err
	}
	cols, err := readLabels(base + ".columns.csv")
	if err != nil {
		return nil, err
	}
	if len(npy.Shape) != 2 || len(drugs) != npy.Shape[0] || len(cols) != npy.Shape[1] {
		return nil, fmt.Errorf("%s: labels do not match npy shape %v", base, npy.Shape)
	}
	m := NewResponseMatrix(drugs, cols)
	copy(m.data, data)
	return m, nil
}

func writeLabels(filename string, labels []string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	bufw := bufio.NewWriter(f)
	for i, l := range labels {
		if _, err = fmt.Fprintf(bufw, "%d,%s\n", i, l); err != nil {
			return err
		}
	}
	if err = bufw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func readLabels(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, ",", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s: malformed label line %q", filename, line)
		}
		out = append(out, fields[1])
	}
	return out, scanner.Err()
}

func readDrugLabels(filename string) ([]DrugKey, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []DrugKey
	csvr := csv.NewReader(f)
	for {
		fields, err := csvr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		if len(fields) != 4 {
			return nil, fmt.Errorf("%s: malformed drug label line %v", filename, fields)
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s: drug id in %v: %w", filename, fields, err)
		}
		out = append(out, DrugKey{ID: id, Name: fields[2], Version: fields[3]})
	}
	return out, nil
}
