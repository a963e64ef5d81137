package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/mtwest2718/ukhe-finances/internal/pipeline"
	"github.com/mtwest2718/ukhe-finances/internal/rules"
)

// printSummary renders one line per table followed by the written outputs
func printSummary(w io.Writer, result *pipeline.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Source", "Rows read", "Kept", "Dropped", "Status", "Error"})
	table.SetAutoWrapText(false)

	for _, r := range result.Reports {
		table.Append([]string{
			strconv.Itoa(r.TableID),
			r.Source,
			strconv.Itoa(r.RowsRead),
			strconv.Itoa(r.Records),
			dropped(r.Dropped),
			string(r.Status),
			r.Error,
		})
	}
	table.Render()

	if result.Manifest == nil {
		return
	}
	kinds := make([]string, 0, len(result.Manifest.Outputs))
	for kind := range result.Manifest.Outputs {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		out := result.Manifest.Outputs[kind]
		fmt.Fprintf(w, "%s: %s (%d rows)\n", kind, out.Path, out.Rows)
	}
	fmt.Fprintf(w, "run %s: %s\n", result.RunID, result.Manifest.Status)
}

// dropped formats drop counts as "reason=n" pairs in reason order
func dropped(counts map[string]int) string {
	if len(counts) == 0 {
		return "0"
	}
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	parts := make([]string, len(reasons))
	for i, reason := range reasons {
		parts[i] = fmt.Sprintf("%s=%d", reason, counts[reason])
	}
	return strings.Join(parts, " ")
}

// printRules lists the table rules, one row per table id
func printRules(w io.Writer, rs *rules.RuleSet) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Table", "Name", "Files", "Filters", "Categories"})
	table.SetAutoWrapText(false)

	for _, id := range rs.IDs() {
		rule, _ := rs.Lookup(id)
		filters := make([]string, len(rule.Filters))
		for i, f := range rule.Filters {
			filters[i] = fmt.Sprintf("%s=%s", f.Column, f.Value)
		}
		table.Append([]string{
			strconv.Itoa(rule.ID),
			rule.Name,
			strings.Join(rule.FileCandidates(), " | "),
			strings.Join(filters, "; "),
			strconv.Itoa(len(rule.Categories)),
		})
	}
	table.Render()
	fmt.Fprintf(w, "header rows: %d, excluded years: %s\n", rs.HeaderRows, strings.Join(rs.ExcludedYears, ", "))
	fmt.Fprintf(w, "wide categories: %d\n", len(rs.Categories()))
}
