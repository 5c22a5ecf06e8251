package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/report-review/internal/aggregation"
	"github.com/jonathan/report-review/internal/db"
	"github.com/jonathan/report-review/internal/llm"
	"github.com/jonathan/report-review/internal/output"
	"github.com/jonathan/report-review/internal/types"
)

const (
	individualModel = "deepseek-chat"
	aggregateModel  = "deepseek-reasoner"
)

type fakeClient struct {
	mu        sync.Mutex
	requests  []llm.Request
	aggregate func(req llm.Request) (string, error)
}

func (c *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if req.Model == aggregateModel {
		if c.aggregate != nil {
			return c.aggregate(req)
		}
		return "# 年度评估\n\n整体表现良好。", nil
	}
	return `{"name": "员工", "key_results": ["完成目标"]}`, nil
}

func (c *fakeClient) Close() error { return nil }

func (c *fakeClient) requestsFor(model string) []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []llm.Request
	for _, req := range c.requests {
		if req.Model == model {
			out = append(out, req)
		}
	}
	return out
}

type fakeStore struct {
	mu       sync.Mutex
	records  map[int]types.PersonRecord
	review   *types.OrganizationReview
	status   string
	failRuns bool
}

func (s *fakeStore) CreateRun(_ context.Context, _ db.RunInput) (uuid.UUID, error) {
	if s.failRuns {
		return uuid.Nil, errors.New("connection refused")
	}
	s.records = map[int]types.PersonRecord{}
	s.status = db.StatusRunning
	return uuid.New(), nil
}

func (s *fakeStore) SaveRecord(_ context.Context, _ uuid.UUID, ordinal int, record types.PersonRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ordinal] = record
	return nil
}

func (s *fakeStore) SaveReview(_ context.Context, _ uuid.UUID, review *types.OrganizationReview) error {
	s.review = review
	return nil
}

func (s *fakeStore) CompleteRun(_ context.Context, _ uuid.UUID, status string) error {
	s.status = status
	return nil
}

func writeInput(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func baseOptions(input, outputRoot string, client llm.Client) RunOptions {
	return RunOptions{
		InputRoot:       input,
		OutputRoot:      outputRoot,
		IndividualModel: individualModel,
		AggregateModel:  aggregateModel,
		Temperature:     0.2,
		Client:          client,
		Now:             func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) },
	}
}

func readSummaries(t *testing.T, outputRoot string) []types.PersonRecord {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(outputRoot, output.SummariesFile))
	require.NoError(t, err)
	var records []types.PersonRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}

func TestRun_UnreadableFileDegradesOnlyItsRecord(t *testing.T) {
	input := writeInput(t, map[string]string{
		"研发部/张三.txt":  "今年完成了系统重构。",
		"研发部/李四主任.md": "# 总结\n带领团队完成交付。",
		"销售部/王五.txt":  "完成销售目标。",
		"销售部/损坏.docx": "this is not a zip archive",
	})
	outputRoot := t.TempDir()
	client := &fakeClient{}
	store := &fakeStore{}

	var events []ProgressEvent
	opts := baseOptions(input, outputRoot, client)
	opts.Store = store
	opts.OnProgress = func(e ProgressEvent) { events = append(events, e) }

	result, err := Run(t.Context(), opts)
	require.NoError(t, err)
	require.Len(t, result.Records, 4)
	assert.Equal(t, 1, result.DegradedCount())

	paths := make([]string, len(result.Records))
	for i, r := range result.Records {
		paths[i] = r.SourcePath
	}
	assert.Equal(t, []string{"研发部/张三.txt", "研发部/李四主任.md", "销售部/损坏.docx", "销售部/王五.txt"}, paths)

	bad := result.Records[2]
	assert.True(t, bad.Degraded())
	assert.Empty(t, bad.Name)
	assert.Equal(t, types.RoleEmployee, bad.Role)

	// The unreadable file never reaches the model
	assert.Len(t, client.requestsFor(individualModel), 3)
	require.Len(t, client.requestsFor(aggregateModel), 1)

	onDisk := readSummaries(t, outputRoot)
	assert.Len(t, onDisk, 4)
	assert.FileExists(t, filepath.Join(outputRoot, output.PerReportDir, "销售部", "损坏.json"))

	review, err := os.ReadFile(filepath.Join(outputRoot, output.ReviewFile))
	require.NoError(t, err)
	assert.Contains(t, string(review), "整体表现良好。")
	require.NotNil(t, result.Review)
	assert.Equal(t, individualModel, result.Review.IndividualModel)
	assert.Equal(t, aggregateModel, result.Review.AggregateModel)

	assert.Equal(t, db.StatusCompleted, store.status)
	assert.Len(t, store.records, 4)
	assert.NotNil(t, store.review)

	require.NotEmpty(t, events)
	assert.Equal(t, StageDiscover, events[0].Stage)
	assert.Equal(t, StageComplete, events[len(events)-1].Stage)
	for _, e := range events {
		assert.Equal(t, events[0].RunID, e.RunID)
	}
}

func TestRun_AggregationFailureKeepsRecords(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		files["部门/"+name+".txt"] = "年度总结 " + name
	}
	input := writeInput(t, files)
	outputRoot := t.TempDir()

	stale := filepath.Join(outputRoot, output.ReviewFile)
	require.NoError(t, os.WriteFile(stale, []byte("old review"), 0644))

	client := &fakeClient{aggregate: func(llm.Request) (string, error) {
		return "", &llm.APICallError{Provider: llm.ProviderDeepSeek, StatusCode: 503, Message: "unavailable"}
	}}
	store := &fakeStore{}
	opts := baseOptions(input, outputRoot, client)
	opts.Store = store
	opts.Workers = 3

	result, err := Run(t.Context(), opts)
	require.Error(t, err)

	var aggErr *aggregation.AggregationError
	require.True(t, errors.As(err, &aggErr))

	require.NotNil(t, result)
	assert.Len(t, result.Records, 5)
	assert.Nil(t, result.Review)
	assert.Len(t, readSummaries(t, outputRoot), 5)
	assert.NoFileExists(t, stale)
	assert.Equal(t, db.StatusAggregateFailed, store.status)
}

func TestRun_PlanPromptAndCustomPrompts(t *testing.T) {
	input := writeInput(t, map[string]string{"人事部/赵六.txt": "完成招聘。"})
	outputRoot := t.TempDir()

	promptsDir := t.TempDir()
	individual := filepath.Join(promptsDir, "individual")
	require.NoError(t, os.MkdirAll(individual, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(individual, "prompt.yaml"),
		[]byte("system: 自定义系统提示 {{.Department}}\nuser: \"{{.Content}}\"\n"), 0644))

	client := &fakeClient{}
	opts := baseOptions(input, outputRoot, client)
	opts.PromptsDir = promptsDir
	opts.PlanPrompt = "侧重人才梯队"

	_, err := Run(t.Context(), opts)
	require.NoError(t, err)

	reqs := client.requestsFor(individualModel)
	require.Len(t, reqs, 1)
	assert.Equal(t, "自定义系统提示 人事部", reqs[0].SystemPrompt)
	assert.Equal(t, "完成招聘。", reqs[0].UserPrompt)

	agg := client.requestsFor(aggregateModel)
	require.Len(t, agg, 1)
	assert.Contains(t, agg[0].UserPrompt, "Additional context:\n侧重人才梯队")
}

func TestRun_StoreFailureDoesNotStopRun(t *testing.T) {
	input := writeInput(t, map[string]string{"a.txt": "内容"})
	opts := baseOptions(input, t.TempDir(), &fakeClient{})
	opts.Store = &fakeStore{failRuns: true}

	result, err := Run(t.Context(), opts)
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
}

func TestRun_Errors(t *testing.T) {
	_, err := Run(t.Context(), RunOptions{InputRoot: t.TempDir()})
	assert.Error(t, err)

	_, err = Run(t.Context(), baseOptions(filepath.Join(t.TempDir(), "missing"), t.TempDir(), &fakeClient{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discovery failed")
}
