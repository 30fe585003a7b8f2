// Package ui renders vacancy-stats reports for the terminal: one pterm table
// per provider, a progress bar while categories are collected, and a banner.
package ui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/Sternrassler/vacancy-stats/pkg/stats"
)

// NotAvailable is shown for a category without an average salary.
const NotAvailable = "n/a"

// Header is the table header row.
var Header = []string{"Language", "Vacancies found", "Vacancies processed", "Average salary"}

// FormatSalary truncates the average to whole units and groups the digits.
// A nil average renders as NotAvailable.
func FormatSalary(avg *float64) string {
	if avg == nil || math.IsNaN(*avg) {
		return NotAvailable
	}
	return humanize.Comma(int64(*avg))
}

// ColorizeSalary colors a formatted average by how it compares to the
// report's overall mean.
func ColorizeSalary(avg *float64, mean float64) string {
	text := FormatSalary(avg)
	switch {
	case avg == nil:
		return pterm.Red(text)
	case mean <= 0:
		return text
	case *avg >= mean*1.2:
		return pterm.Green(text)
	case *avg >= mean:
		return pterm.LightGreen(text)
	case *avg >= mean*0.8:
		return pterm.Yellow(text)
	default:
		return pterm.Red(text)
	}
}

// Rows builds the table rows for a report, header first, in category order.
// Failed categories carry their error in the salary column.
func Rows(report *stats.Report) [][]string {
	mean := overallMean(report)

	rows := make([][]string, 0, len(report.Categories)+1)
	rows = append(rows, Header)
	for _, c := range report.Categories {
		s, _ := report.Get(c)
		salary := ColorizeSalary(s.AverageSalary, mean)
		if s.Failed() {
			salary = pterm.Red("error: " + truncate(s.Err.Error(), 60))
		}
		rows = append(rows, []string{
			c,
			humanize.Comma(int64(s.Found)),
			humanize.Comma(int64(s.Processed)),
			salary,
		})
	}
	return rows
}

// RenderTable renders one report as a titled table.
func RenderTable(title string, report *stats.Report) (string, error) {
	table, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithData(Rows(report)).
		Srender()
	if err != nil {
		return "", fmt.Errorf("render %s table: %w", report.Provider, err)
	}

	var b strings.Builder
	b.WriteString(pterm.DefaultSection.Sprint(title))
	b.WriteString(table)
	b.WriteString("\n")

	footer := fmt.Sprintf("%s in %s", report.Provider, report.Duration().Round(time.Second))
	if failed := report.Failed(); len(failed) > 0 {
		footer += fmt.Sprintf(", %d skipped: %s", len(failed), strings.Join(failed, ", "))
	}
	b.WriteString(pterm.Gray(footer))
	b.WriteString("\n")
	return b.String(), nil
}

// WriteTable renders report to w.
func WriteTable(w io.Writer, title string, report *stats.Report) error {
	out, err := RenderTable(title, report)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// overallMean is the mean of the defined category averages, 0 when none is.
func overallMean(report *stats.Report) float64 {
	var sum float64
	var n int
	for _, c := range report.Categories {
		if s, ok := report.Get(c); ok && s.AverageSalary != nil {
			sum += *s.AverageSalary
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
