package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OrganizationReview is the narrative synthesis produced from all person records
type OrganizationReview struct {
	GeneratedAt     time.Time `json:"generated_at"`
	IndividualModel string    `json:"individual_model"`
	AggregateModel  string    `json:"aggregate_model"`
	Temperature     float64   `json:"temperature"`
	Body            string    `json:"body"`
}

// Header renders the metadata block placed above the narrative body
func (r *OrganizationReview) Header() string {
	var sb strings.Builder
	sb.WriteString("# 年终总结评审\n\n")
	sb.WriteString(fmt.Sprintf("生成时间：%s\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("使用模型：个人提炼=%s；汇总=%s\n", r.IndividualModel, r.AggregateModel))
	sb.WriteString(fmt.Sprintf("采样温度：%s\n\n", strconv.FormatFloat(r.Temperature, 'f', -1, 64)))
	return sb.String()
}

// Markdown renders the full review document: header followed by the body verbatim
func (r *OrganizationReview) Markdown() string {
	return r.Header() + r.Body + "\n"
}

// RunResult is the complete output of one pipeline invocation
type RunResult struct {
	Records []PersonRecord      `json:"records"` // Discovery order
	Review  *OrganizationReview `json:"review,omitempty"`
}

// DegradedCount returns how many records came from failed extractions
func (r *RunResult) DegradedCount() int {
	count := 0
	for _, rec := range r.Records {
		if rec.Degraded() {
			count++
		}
	}
	return count
}
