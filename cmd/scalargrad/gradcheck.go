// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"math/rand/v2"

	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalargrad/pkg/core/graph/graphtest"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

const (
	gradCheckEpsilon   = 1e-6
	gradCheckTolerance = 1e-3
	gradCheckScale     = 2.0
)

// gradCheckStats accumulates the results of the "gradcheck" scenario.
type gradCheckStats struct {
	programs, nodes              int64
	checked, skipped, mismatched int64
	failedPrograms               int64
	firstFailure                 error
}

// runGradCheck builds cfg.trials random programs and compares, for every leaf, the gradient computed by
// the backward pass with its finite differences estimate.
//
// It returns an error if any of the gradients didn't match.
func runGradCheck(cfg *config) error {
	if cfg.trials <= 0 || cfg.maxOps <= 0 || cfg.maxLeaves <= 0 {
		return errors.Errorf("%q requires positive -trials, -ops and -leaves, got %d, %d and %d",
			gradCheckScenario, cfg.trials, cfg.maxOps, cfg.maxLeaves)
	}
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed+1))
	bar := progressbar.NewOptions(cfg.trials,
		progressbar.OptionSetDescription(gradCheckScenario),
		progressbar.OptionSetWriter(cfg.progressOut),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("programs"),
	)

	var stats gradCheckStats
	for trial := range cfg.trials {
		numLeaves := 1 + rng.IntN(cfg.maxLeaves)
		numOps := 1 + rng.IntN(cfg.maxOps)
		p := graphtest.RandomProgram(rng, numLeaves, numOps)
		values := graphtest.RandomValues(rng, numLeaves, gradCheckScale)
		var check *graphtest.GradientCheck
		err := exceptions.TryCatch[error](func() {
			check = graphtest.CompareGradients(p, values, gradCheckEpsilon, gradCheckTolerance)
		})
		if err != nil {
			return errors.WithMessagef(err, "trial %d, %s", trial, p)
		}
		stats.add(trial, p, values, check)
		if err = bar.Add(1); err != nil {
			return errors.Wrap(err, "updating progress bar")
		}
	}
	if err := bar.Finish(); err != nil {
		return errors.Wrap(err, "finishing progress bar")
	}
	_, _ = fmt.Fprintln(cfg.progressOut)

	_, err := fmt.Fprintln(cfg.out, titleStyle.Render(fmt.Sprintf("Scenario %q: seed %d", gradCheckScenario, cfg.seed)))
	if err == nil {
		_, err = fmt.Fprintln(cfg.out, stats.table().Render())
	}
	if err != nil {
		return errors.Wrapf(err, "writing report of scenario %q", gradCheckScenario)
	}
	if stats.firstFailure != nil {
		return errors.WithMessagef(stats.firstFailure, "%s of %s programs with mismatched gradients",
			humanize.Comma(stats.failedPrograms), humanize.Comma(stats.programs))
	}
	return nil
}

func (s *gradCheckStats) add(trial int, p *graphtest.Program, values []float64, check *graphtest.GradientCheck) {
	s.programs++
	s.nodes += int64(p.NumLeaves + len(p.Instructions))
	for _, skipped := range check.Skipped {
		if skipped {
			s.skipped++
		} else {
			s.checked++
		}
	}
	if len(check.Mismatches) == 0 {
		return
	}
	s.mismatched += int64(len(check.Mismatches))
	s.failedPrograms++
	leaf := check.Mismatches[0]
	klog.V(1).Infof("trial %d: gradient mismatch for leaf #%d: backward=%g, numerical=%g",
		trial, leaf, check.Backward[leaf], check.Numerical[leaf])
	if s.firstFailure == nil {
		s.firstFailure = errors.Errorf("trial %d: gradient of leaf #%d is %g, numerical estimate is %g, values=%v\n%s",
			trial, leaf, check.Backward[leaf], check.Numerical[leaf], values, p)
	}
}

func (s *gradCheckStats) table() *lgtable.Table {
	table := newPlainTable()
	table.Headers("Metric", "Count")
	table.Row("programs", humanize.Comma(s.programs))
	table.Row("nodes", humanize.Comma(s.nodes))
	table.Row("gradients checked", humanize.Comma(s.checked))
	table.Row("gradients skipped (ReLU kink)", humanize.Comma(s.skipped))
	table.Row("gradients mismatched", humanize.Comma(s.mismatched))
	return table
}
