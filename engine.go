// Copyright (C) The Drugassoc Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package drugassoc

import (
	"fmt"
	"runtime"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config carries every tunable of one pipeline run. There is no
// ambient global state: a Config is passed explicitly to NewEngine.
type Config struct {
	// DrugValueType labels the response scale, "ic50" or "auc".
	DrugValueType string
	// FDRThreshold selects which associations enter the robust check.
	FDRThreshold float64
	// MinEvents excludes genomic features with fewer occurrences.
	MinEvents int
	// PPIScoreThreshold filters interaction edges by confidence score.
	PPIScoreThreshold float64
	// PPITargetDistanceThreshold caps the numeric target annotation.
	PPITargetDistanceThreshold int
	// CorrectionMethod is "bonferroni" or "bh".
	CorrectionMethod string
	// MaxConcurrency bounds the per-drug scan worker pool.
	MaxConcurrency int
	// ScanTimeout abandons a single drug's scan after this long; zero
	// disables the deadline.
	ScanTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DrugValueType:              "ic50",
		FDRThreshold:               0.1,
		MinEvents:                  5,
		PPIScoreThreshold:          900,
		PPITargetDistanceThreshold: 3,
		CorrectionMethod:           "bonferroni",
		MaxConcurrency:             runtime.GOMAXPROCS(0),
	}
}

// ScanFailure is one drug's (or one association's) numerical failure
// within an otherwise successful run.
type ScanFailure struct {
	Drug DrugKey
	Gene string
	Err  error
}

// RunSummary enumerates what a stage processed and which per-unit
// scans failed. Per-unit failures do not abort the batch; their rows
// are simply absent from the output.
type RunSummary struct {
	Samples  int
	Drugs    int
	Genes    int
	Events   int
	Failures []ScanFailure
}

// Engine wires the association pipeline: sample-set intersection,
// kinship construction, the per-drug mixed-model scan, per-drug
// multiple-testing correction, PPI target annotation and the robust
// re-test of significant hits.
type Engine struct {
	cfg     Config
	crispr  *FeatureMatrix
	drespo  *ResponseMatrix
	genomic *FeatureMatrix
	targets DrugTargetMap
	covar   *FeatureMatrix
	samples *SampleSet
	solver  Solver
}

// NewEngine intersects the sample identifiers of all supplied matrices
// and restricts every matrix to that set. genomic and covar may be nil
// (covar rows are samples). An empty intersection is a fatal
// configuration error.
func NewEngine(cfg Config, crispr *FeatureMatrix, drespo *ResponseMatrix, genomic *FeatureMatrix, targets DrugTargetMap, covar *FeatureMatrix) (*Engine, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = runtime.GOMAXPROCS(0)
	}
	samples := NewSampleSet(crispr.ColNames).Intersect(drespo.ColNames)
	if genomic != nil {
		samples = samples.Intersect(genomic.ColNames)
	}
	if covar != nil {
		samples = samples.Intersect(covar.RowNames)
	}
	if samples.Len() == 0 {
		return nil, fmt.Errorf("engine: sample intersection across input matrices: %w", ErrNoSamples)
	}
	log.Infof("engine: %d samples in common", samples.Len())

	e := &Engine{
		cfg:     cfg,
		crispr:  crispr.SubsetColumns(samples.IDs()),
		drespo:  drespo.SubsetColumns(samples.IDs()),
		targets: targets,
		samples: samples,
		solver:  &LMMSolver{},
	}
	if genomic != nil {
		e.genomic = genomic.SubsetColumns(samples.IDs()).FilterMinEvents(cfg.MinEvents)
	}
	if covar != nil {
		e.covar = covar.SubsetRows(samples.IDs())
	}
	return e, nil
}

// SetSolver replaces the default continuous-link solver, e.g. with
// GLMSolver for a binary response.
func (e *Engine) SetSolver(s Solver) { e.solver = s }

// Samples returns the active sample intersection.
func (e *Engine) Samples() *SampleSet { return e.samples }

// SingleAssociations runs the per-drug mixed-model scan of every gene
// against every drug, corrects p-values within each drug's group,
// annotates drug targets through the PPI graph, and returns records
// sorted by (fdr, pval). Per-drug numerical failures are collected in
// the summary; a failed drug's rows are omitted and sibling drugs
// proceed.
func (e *Engine) SingleAssociations(ppi *PPIGraph) ([]AssociationRecord, *RunSummary, error) {
	kinship, err := BuildKinship(e.crispr)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: %w", err)
	}
	scanner := &AssociationScanner{Solver: e.solver, AddIntercept: true}

	ndrugs := len(e.drespo.Drugs)
	log.Infof("engine: scanning %d drugs x %d genes", ndrugs, e.crispr.Rows())
	results := make([][]AssociationRecord, ndrugs)
	errs := make([]error, ndrugs)
	pool := throttle{Max: e.cfg.MaxConcurrency}
	for i, drug := range e.drespo.Drugs {
		i, drug := i, drug
		y, _ := e.drespo.Row(drug)
		pool.Go(e.cfg.ScanTimeout, func() error {
			recs, err := scanner.Scan(drug, y, e.crispr, e.covar, kinship)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		}, func(err error) {
			errs[i] = err
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, nil, err
	}

	summary := &RunSummary{
		Samples: e.samples.Len(),
		Drugs:   ndrugs,
		Genes:   e.crispr.Rows(),
	}
	var recs []AssociationRecord
	for i, drug := range e.drespo.Drugs {
		if errs[i] != nil {
			summary.Failures = append(summary.Failures, ScanFailure{Drug: drug, Err: errs[i]})
			log.Warnf("engine: scan failed for %v: %s", drug, errs[i])
			continue
		}
		recs = append(recs, results[i]...)
	}

	if err := CorrectAssociations(recs, e.cfg.CorrectionMethod); err != nil {
		return nil, nil, err
	}
	if ppi != nil {
		if err := AnnotateTargets(recs, e.targets, ppi, e.cfg.PPITargetDistanceThreshold); err != nil {
			return nil, nil, err
		}
	}
	sortAssociations(recs)
	if len(summary.Failures) > 0 {
		log.Warnf("engine: %d of %d drug scans failed", len(summary.Failures), ndrugs)
	}
	return recs, summary, nil
}

// RobustAssociations re-tests every association below the FDR cutoff
// against the genomic-event matrix, both phenotype sides sharing one
// genomic kinship per association, and corrects each side's p-values
// independently with the same per-drug grouping. Records are sorted by
// (fdr_drug, pval_drug).
func (e *Engine) RobustAssociations(single []AssociationRecord) ([]RobustAssociationRecord, *RunSummary, error) {
	if e.genomic == nil {
		return nil, nil, fmt.Errorf("engine: robust check requires a genomic-event matrix")
	}
	var signif []AssociationRecord
	for _, r := range single {
		if r.FDR < e.cfg.FDRThreshold {
			signif = append(signif, r)
		}
	}
	log.Infof("engine: %d significant associations at fdr < %v", len(signif), e.cfg.FDRThreshold)

	checker := &RobustChecker{Solver: e.solver, MinEvents: e.cfg.MinEvents}
	results := make([][]RobustAssociationRecord, len(signif))
	errs := make([]error, len(signif))
	pool := throttle{Max: e.cfg.MaxConcurrency}
	for i, assoc := range signif {
		i, assoc := i, assoc
		pool.Go(e.cfg.ScanTimeout, func() error {
			recs, err := checker.Check(assoc.Key(), assoc.Gene, e.drespo, e.crispr, e.genomic)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		}, func(err error) {
			errs[i] = err
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, nil, err
	}

	summary := &RunSummary{
		Samples: e.samples.Len(),
		Drugs:   len(signif),
		Events:  e.genomic.Rows(),
	}
	var recs []RobustAssociationRecord
	for i, assoc := range signif {
		if errs[i] != nil {
			summary.Failures = append(summary.Failures, ScanFailure{Drug: assoc.Key(), Gene: assoc.Gene, Err: errs[i]})
			log.Warnf("engine: robust check failed for %v / %s: %s", assoc.Key(), assoc.Gene, errs[i])
			continue
		}
		recs = append(recs, results[i]...)
	}

	if err := CorrectRobustAssociations(recs, e.cfg.CorrectionMethod); err != nil {
		return nil, nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].FDRDrug != recs[j].FDRDrug {
			return recs[i].FDRDrug < recs[j].FDRDrug
		}
		return recs[i].PValueDrug < recs[j].PValueDrug
	})
	if len(summary.Failures) > 0 {
		log.Warnf("engine: %d of %d robust checks failed", len(summary.Failures), len(signif))
	}
	return recs, summary, nil
}

func sortAssociations(recs []AssociationRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].FDR != recs[j].FDR {
			return recs[i].FDR < recs[j].FDR
		}
		return recs[i].PValue < recs[j].PValue
	})
}
