// Package report prints analysis results as console tables
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"dopastat/domain/dataset"
	"dopastat/domain/stats"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	heading = color.New(color.FgYellow, color.Bold)
	warning = color.New(color.FgRed)
	notice  = color.New(color.FgCyan)
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// Heading prints a section title
func Heading(w io.Writer, title string) {
	heading.Fprintf(w, "\n%s\n", title)
}

// Prevalence prints user counts per substance with the share of respondents
func Prevalence(w io.Writer, prevalence stats.Prevalence, respondents int) {
	Heading(w, "Substance prevalence")
	table := newTable(w, "Substance", "Users", "Share")
	for _, e := range prevalence {
		share := "-"
		if respondents > 0 {
			share = fmt.Sprintf("%.1f%%", 100*float64(e.Count)/float64(respondents))
		}
		table.Append([]string{dataset.SubstanceName(e.Key), strconv.Itoa(e.Count), share})
	}
	table.Render()
}

// Baseline prints the coefficient table and the fit metrics of one model
func Baseline(w io.Writer, fit *stats.FitResult) {
	if fit == nil {
		return
	}
	Heading(w, fmt.Sprintf("Linear probability model: %s", fit.Target))
	table := newTable(w, "Term", "Coefficient")
	for _, c := range fit.Named() {
		table.Append([]string{c.Key.String(), formatFloat(c.Value, 4)})
	}
	table.Render()

	fmt.Fprintf(w, "Solver: %s (rank %d)\n", fit.Coefficients.Solver, fit.Coefficients.Rank)
	if fit.Coefficients.Warning != "" {
		warning.Fprintf(w, "  %s\n", fit.Coefficients.Warning)
	}
	fmt.Fprintf(w, "Accuracy (threshold %g): %s\n", fit.Evaluation.Threshold, formatFloat(fit.Evaluation.Accuracy, 3))
	fmt.Fprintf(w, "R² (indicative, binary target): %s\n", formatFloat(fit.Evaluation.RSquaredIndicative, 3))

	for _, d := range fit.Dropped {
		notice.Fprintf(w, "  dropped %s (%s)\n", d.Key, d.Reason)
	}
	for _, k := range fit.ZeroFilled {
		notice.Fprintf(w, "  zero-filled %s\n", k)
	}
	for _, k := range fit.Unstandardized {
		notice.Fprintf(w, "  %s centered only (zero variance)\n", k)
	}
}

// Ranking prints comparator results, highest coefficient first
func Ranking(w io.Writer, focal string, ranking []stats.RankedTarget) {
	Heading(w, fmt.Sprintf("Targets ranked by %s coefficient", focal))
	table := newTable(w, "Rank", "Substance", "Coefficient", "Solver")
	for i, r := range ranking {
		table.Append([]string{strconv.Itoa(i + 1), r.Name, formatFloat(r.Coefficient, 4), string(r.Solver)})
	}
	table.Render()
}

// Correlations prints a correlation block with one row per row key
func Correlations(w io.Writer, title string, m *stats.CorrelationMatrix) {
	if m == nil {
		return
	}
	Heading(w, title)
	header := []string{""}
	for _, c := range m.Cols {
		header = append(header, dataset.SubstanceName(c))
	}
	table := newTable(w, header...)
	for i, r := range m.Rows {
		row := []string{r.String()}
		for _, v := range m.Values[i] {
			row = append(row, formatFloat(v, 2))
		}
		table.Append(row)
	}
	table.Render()
}

// Groups prints five-number summaries per group
func Groups(w io.Writer, title string, groups []stats.GroupSummary) {
	Heading(w, title)
	table := newTable(w, "Group", "N", "Min", "Q1", "Median", "Q3", "Max", "Mean")
	for _, g := range groups {
		table.Append([]string{
			g.Group, strconv.Itoa(g.N),
			formatFloat(g.Min, 3), formatFloat(g.Q1, 3), formatFloat(g.Median, 3),
			formatFloat(g.Q3, 3), formatFloat(g.Max, 3), formatFloat(g.Mean, 3),
		})
	}
	table.Render()
}

// Trends prints one line per fitted trend
func Trends(w io.Writer, trends []*stats.Trend) {
	if len(trends) == 0 {
		return
	}
	Heading(w, "Trends")
	table := newTable(w, "X", "Y", "Slope", "Intercept", "r", "N")
	for _, t := range trends {
		table.Append([]string{
			t.X.String(), t.Y.String(),
			formatFloat(t.Slope, 4), formatFloat(t.Intercept, 4), formatFloat(t.R, 3),
			strconv.Itoa(t.N),
		})
	}
	table.Render()
}

// Warnings prints accumulated pipeline warnings, if any
func Warnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	Heading(w, "Warnings")
	for _, msg := range warnings {
		warning.Fprintf(w, "  - %s\n", msg)
	}
}

// Figures lists written artifact paths
func Figures(w io.Writer, paths []string) {
	if len(paths) == 0 {
		return
	}
	Heading(w, "Figures")
	for _, p := range paths {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

func formatFloat(v float64, prec int) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
