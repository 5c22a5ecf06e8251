package aggregation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/prompts"
	"github.com/jonathan/report-review/internal/types"
)

type recordingClient struct {
	requests []llm.Request
	reply    string
	err      error
}

func (c *recordingClient) Complete(_ context.Context, req llm.Request) (string, error) {
	c.requests = append(c.requests, req)
	return c.reply, c.err
}

func (c *recordingClient) Close() error { return nil }

var fixedNow = time.Date(2024, 12, 31, 18, 0, 0, 0, time.UTC)

func sampleRecords() []types.PersonRecord {
	a := types.NewPersonRecord("研发部/张三.md", types.RoleEmployee)
	a.Name = "张三"
	a.KeyResults = []string{"完成 <核心> 模块"}
	b := types.NewPersonRecord("产品部/李四主任.docx", types.RoleCadre)
	b.Name = "李四"
	c := types.NewPersonRecord("broken.docx", types.RoleEmployee)
	c.Error = "unreadable file broken.docx: cannot parse document"
	return []types.PersonRecord{a, b, c}
}

func newTestEngine(client llm.Client) *Engine {
	return NewEngine(client, prompts.NewResolver(nil, nil), Options{
		Model:           "deepseek-reasoner",
		IndividualModel: "deepseek-chat",
		Temperature:     1.3,
		MaxTokens:       32000,
		Now:             func() time.Time { return fixedNow },
	})
}

func TestAggregate(t *testing.T) {
	client := &recordingClient{reply: "## 总体印象\n团队交付稳定。"}
	records := sampleRecords()

	review, err := newTestEngine(client).Aggregate(t.Context(), records, "")
	require.NoError(t, err)

	assert.Equal(t, "## 总体印象\n团队交付稳定。", review.Body)
	assert.Equal(t, fixedNow, review.GeneratedAt)
	assert.Equal(t, "deepseek-chat", review.IndividualModel)
	assert.Equal(t, "deepseek-reasoner", review.AggregateModel)
	assert.InDelta(t, 1.3, review.Temperature, 1e-9)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "deepseek-reasoner", req.Model)
	assert.Equal(t, 32000, req.MaxTokens)

	// Built-in user template is exactly the serialized records
	var sent []types.PersonRecord
	require.NoError(t, json.Unmarshal([]byte(req.UserPrompt), &sent))
	assert.Equal(t, records, sent)
	assert.Contains(t, req.UserPrompt, "完成 <核心> 模块")
	assert.Contains(t, req.UserPrompt, "\n  {\n")
	assert.NotContains(t, req.UserPrompt, "Additional context")
}

func TestAggregate_AppendsPlanPrompt(t *testing.T) {
	client := &recordingClient{reply: "ok"}

	_, err := newTestEngine(client).Aggregate(t.Context(), sampleRecords(), "  明年重点建设算法能力  ")
	require.NoError(t, err)

	user := client.requests[0].UserPrompt
	assert.True(t, strings.HasPrefix(user, "["))
	assert.True(t, strings.HasSuffix(user, "\n\nAdditional context:\n明年重点建设算法能力"))
}

func TestAggregate_EmptyRecordSet(t *testing.T) {
	client := &recordingClient{reply: "no data"}

	_, err := newTestEngine(client).Aggregate(t.Context(), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "[]", client.requests[0].UserPrompt)
}

func TestAggregate_Failure(t *testing.T) {
	cause := &llm.APICallError{Provider: llm.ProviderDeepSeek, StatusCode: 503, Message: "unavailable"}
	client := &recordingClient{err: cause}

	review, err := newTestEngine(client).Aggregate(t.Context(), sampleRecords(), "")
	assert.Nil(t, review)

	var aggErr *AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.ErrorIs(t, err, cause)
	assert.Len(t, client.requests, 1)
}

func TestMarshalRecords(t *testing.T) {
	out, err := MarshalRecords(sampleRecords()[:1])
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "[\n  {\n    \"name\": \"张三\""))
	assert.Contains(t, out, `"key_results": [`)
	assert.Contains(t, out, `"tags": []`)
	assert.NotContains(t, out, `"error"`)
	assert.False(t, strings.HasSuffix(out, "\n"))
}
