// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// scalargrad runs small scalar autodiff scenarios and prints the value and gradient of every node.
//
// Usage:
//
//	scalargrad -scenario=demo
//	scalargrad -scenario=gradcheck -trials=5000 -ops=12 -leaves=4
//	scalargrad -scenario=all -plain
//	scalargrad -scenario=overflow -nanlogger
package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"
)

var (
	flagScenario = flag.String("scenario", "demo",
		"Scenario to run, one of "+scenarioNamesList()+", or \"all\". "+
			"Comma-separated lists are also accepted.")
	flagTrials = flag.Int("trials", 1000, "Number of random programs checked by the \"gradcheck\" scenario.")
	flagOps    = flag.Int("ops", 8, "Maximum number of ops of each random program in \"gradcheck\".")
	flagLeaves = flag.Int("leaves", 4, "Maximum number of leaves of each random program in \"gradcheck\".")
	flagSeed   = flag.Uint64("seed", 42, "Seed for the random programs and values of \"gradcheck\".")
	flagPlain  = flag.Bool("plain", false, "Disable colors and styles in the output.")
	flagNan    = flag.Bool("nanlogger", false,
		"Trace every node of each fixed scenario with a NanLogger, reporting the first NaN or Inf value or gradient.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagPlain {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	cfg := &config{
		out:         os.Stdout,
		progressOut: os.Stderr,
		trials:      *flagTrials,
		maxOps:      *flagOps,
		maxLeaves:   *flagLeaves,
		seed:        *flagSeed,
		nanLogger:   *flagNan,
	}
	names := must.M1(parseScenarios(*flagScenario))
	for _, name := range names {
		if err := runScenario(cfg, name); err != nil {
			klog.Errorf("Scenario %q failed: %+v", name, err)
			os.Exit(1)
		}
	}
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

// newPlainTable returns a table with alternating row colors, and the first column aligned to the right.
// Headers, if set, are rendered in reverse video.
func newPlainTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}
