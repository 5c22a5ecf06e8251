// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"

	"github.com/jonathan/report-review/internal/types"
)

const (
	// boxWidth is the display width of formatted output boxes, in terminal columns
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 3
	// maxReviewLines limits the review preview
	maxReviewLines = 12
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// displayWidth counts terminal columns; wide and fullwidth runes take two
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

// fit truncates s to at most cols columns and pads it to exactly cols
func fit(s string, cols int) string {
	if displayWidth(s) > cols {
		var sb strings.Builder
		used := 0
		for _, r := range s {
			w := displayWidth(string(r))
			if used+w > cols-3 {
				break
			}
			sb.WriteRune(r)
			used += w
		}
		s = sb.String() + "..."
	}
	return s + strings.Repeat(" ", cols-displayWidth(s))
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", fit(title, boxWidth-4))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", fit(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func writeList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(label + ":\n")
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// PrintRecord outputs a human-readable summary of one extracted record.
func (p *Printer) PrintRecord(record types.PersonRecord) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Source:     %s\n", record.SourcePath))
	if record.Degraded() {
		sb.WriteString("Status:     DEGRADED\n")
		sb.WriteString(fmt.Sprintf("Error:      %s\n", record.Error))
		p.printBox("EXTRACTED RECORD", sb.String())
		return
	}

	sb.WriteString(fmt.Sprintf("Name:       %s\n", record.Name))
	sb.WriteString(fmt.Sprintf("Department: %s\n", record.Department))
	sb.WriteString(fmt.Sprintf("Role:       %s\n", record.Role))
	if record.Position != "" {
		sb.WriteString(fmt.Sprintf("Position:   %s\n", record.Position))
	}
	writeList(&sb, "Key results", record.KeyResults)
	writeList(&sb, "Risk flags", record.RiskFlags)
	writeList(&sb, "Tags", record.Tags)

	p.printBox("EXTRACTED RECORD", sb.String())
}

// PrintRunSummary outputs record counts by role and department.
func (p *Printer) PrintRunSummary(result *types.RunResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	roles := map[types.Role]int{}
	departments := map[string]int{}
	var order []string
	for _, record := range result.Records {
		if record.Degraded() {
			continue
		}
		roles[record.Role]++
		dept := record.Department
		if dept == "" {
			dept = "(unknown)"
		}
		if departments[dept] == 0 {
			order = append(order, dept)
		}
		departments[dept]++
	}

	sb.WriteString(fmt.Sprintf("Records:    %d\n", len(result.Records)))
	sb.WriteString(fmt.Sprintf("Degraded:   %d\n", result.DegradedCount()))
	sb.WriteString(fmt.Sprintf("Cadres:     %d\n", roles[types.RoleCadre]))
	sb.WriteString(fmt.Sprintf("Employees:  %d\n", roles[types.RoleEmployee]))
	if len(order) > 0 {
		sb.WriteString("Departments:\n")
		for _, dept := range order {
			sb.WriteString(fmt.Sprintf("  • %s: %d\n", dept, departments[dept]))
		}
	}
	if result.Review == nil {
		sb.WriteString("Review:     not generated\n")
	} else {
		sb.WriteString(fmt.Sprintf("Review:     %d characters\n", len([]rune(result.Review.Body))))
	}

	p.printBox("RUN SUMMARY", sb.String())
}

// PrintReview outputs the review header and the first lines of its body.
func (p *Printer) PrintReview(review *types.OrganizationReview) {
	if review == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Models:     %s / %s\n", review.IndividualModel, review.AggregateModel))
	sb.WriteString(fmt.Sprintf("Generated:  %s\n", review.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString("\n")

	lines := strings.Split(strings.TrimSpace(review.Body), "\n")
	for i, line := range lines {
		if i == maxReviewLines {
			sb.WriteString(fmt.Sprintf("... and %d more lines\n", len(lines)-maxReviewLines))
			break
		}
		sb.WriteString(line + "\n")
	}

	p.printBox("ORGANIZATION REVIEW", sb.String())
}
