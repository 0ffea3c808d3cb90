package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RichardoC/csvchat/internal/models"
	"github.com/RichardoC/csvchat/internal/session"
	"github.com/RichardoC/csvchat/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// scriptedModel replays canned responses in order, repeating the last one
// once the script runs out.
type scriptedModel struct {
	mu        sync.Mutex
	script    []*llms.ContentResponse
	err       error
	requests  [][]llms.MessageContent
	options   []llms.CallOptions
	deadlines []bool
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	_, hasDeadline := ctx.Deadline()
	m.requests = append(m.requests, messages)
	m.options = append(m.options, opts)
	m.deadlines = append(m.deadlines, hasDeadline)

	if m.err != nil {
		return nil, m.err
	}
	i := len(m.requests) - 1
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	return m.script[i], nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textReply(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop"}}}
}

func toolReply(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{ToolCalls: calls, StopReason: "tool_calls"}}}
}

func call(id, name, args string) llms.ToolCall {
	return llms.ToolCall{ID: id, Type: "function", FunctionCall: &llms.FunctionCall{Name: name, Arguments: args}}
}

type fixture struct {
	registry *tools.Registry
	fallback string
	uploaded string
}

// newFixture writes a 3-row fallback dataset and a 2-row uploaded dataset.
func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	fallback := filepath.Join(dir, "demo.csv")
	uploaded := filepath.Join(dir, "upload.csv")
	require.NoError(t, os.WriteFile(fallback, []byte("name,age,city\nAnn,10,Paris\nBob,20,Rome\nCid,30,Paris\n"), 0o644))
	require.NoError(t, os.WriteFile(uploaded, []byte("item,price\ntea,1.5\ncake,2.5\n"), 0o644))

	reg, err := tools.NewDefaultRegistry(fallback, nil)
	require.NoError(t, err)
	return fixture{registry: reg, fallback: fallback, uploaded: uploaded}
}

func TestChat_DirectAnswer(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{textReply("Hello!")}}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{}, "hi")
	require.NoError(t, err)

	assert.Equal(t, "Hello!", turn.Answer)
	assert.Equal(t, 1, turn.Rounds)
	require.Len(t, turn.Messages, 3)
	assert.Equal(t, models.RoleSystem, turn.Messages[0].Role)
	assert.Contains(t, turn.Messages[0].Content, "The current CSV file path is: demo_data.csv (default)")
	assert.Equal(t, models.RoleUser, turn.Messages[1].Role)
	assert.Equal(t, "hi", turn.Messages[1].Content)

	require.Len(t, model.options, 1)
	assert.Len(t, model.options[0].Tools, len(tools.All))
}

func TestChat_SystemPromptNamesBoundDataset(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{textReply("ok")}}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{DatasetPath: f.uploaded}, "hi")
	require.NoError(t, err)
	assert.Contains(t, turn.Messages[0].Content, "The current CSV file path is: "+f.uploaded)
}

func TestChat_ToolRoundTrip(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("call_1", "query_csv_data", `{"query":"what is the sum of age"}`)),
		textReply("The total age is 60."),
	}}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{}, "sum the ages")
	require.NoError(t, err)

	assert.Equal(t, "The total age is 60.", turn.Answer)
	assert.Equal(t, 2, turn.Rounds)
	require.Len(t, turn.Messages, 5)

	result := turn.Messages[3]
	assert.Equal(t, models.RoleTool, result.Role)
	assert.Equal(t, "call_1", result.ToolCallID)
	assert.Equal(t, "query_csv_data", result.ToolName)
	assert.Equal(t, "The sum of 'age' is: 60.00", result.Content)

	// The second request carries the tool result back to the model.
	require.Len(t, model.requests, 2)
	second := model.requests[1]
	require.Len(t, second, 4)
	assert.Equal(t, llms.ChatMessageTypeTool, second[3].Role)
	resp, ok := second[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Equal(t, "The sum of 'age' is: 60.00", resp.Content)
}

func TestChat_InjectsSessionDataset(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"absent", `{}`},
		{"blank", `{"file_path":"  "}`},
		{"null", `{"file_path":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			model := &scriptedModel{script: []*llms.ContentResponse{
				toolReply(call("c1", "read_csv_tool", tt.args)),
				textReply("done"),
			}}
			svc := NewService(model, f.registry)

			turn, err := svc.Chat(context.Background(), session.Context{DatasetPath: f.uploaded}, "inspect")
			require.NoError(t, err)
			assert.Contains(t, turn.Messages[3].Content, "Shape: 2 rows x 2 columns")
		})
	}
}

func TestChat_ExplicitPathWins(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("c1", "read_csv_tool", `{"file_path":"`+f.fallback+`"}`)),
		textReply("done"),
	}}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{DatasetPath: f.uploaded}, "inspect")
	require.NoError(t, err)
	assert.Contains(t, turn.Messages[3].Content, "Shape: 3 rows x 3 columns")
}

func TestChat_NoSessionDatasetUsesFallback(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("c1", "query_csv_data", `{"query":"how many rows"}`)),
		textReply("done"),
	}}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{}, "rows?")
	require.NoError(t, err)
	assert.Equal(t, "The CSV file has 3 rows.", turn.Messages[3].Content)
}

func TestChat_UnknownToolContinuesTurn(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("c1", "drop_table", `{}`)),
		textReply("Sorry, I cannot do that."),
	}}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{}, "drop it")
	require.NoError(t, err)
	assert.Equal(t, "Tool 'drop_table' not found.", turn.Messages[3].Content)
	assert.Equal(t, "Sorry, I cannot do that.", turn.Answer)
}

func TestChat_MalformedArgumentsBecomeToolError(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("c1", "query_csv_data", `{"query":`)),
		textReply("recovered"),
	}}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{}, "q")
	require.NoError(t, err)
	assert.Contains(t, turn.Messages[3].Content, "Error: invalid arguments for tool 'query_csv_data'")
	assert.Equal(t, "recovered", turn.Answer)
}

func TestChat_MultipleCallsKeepOrder(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(
			call("a", "query_csv_data", `{"query":"row count"}`),
			call("b", "analyze_csv_column", `{"column_name":"missing"}`),
		),
		textReply("done"),
	}}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{}, "q")
	require.NoError(t, err)
	require.Len(t, turn.Messages, 6)
	assert.Equal(t, "a", turn.Messages[3].ToolCallID)
	assert.Equal(t, "The CSV file has 3 rows.", turn.Messages[3].Content)
	assert.Equal(t, "b", turn.Messages[4].ToolCallID)
	assert.Equal(t, "Error: Column 'missing' not found. Available columns: name, age, city", turn.Messages[4].Content)
}

func TestChat_MaxRoundsExceeded(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("loop", "read_csv_tool", `{}`)),
	}}
	svc := NewService(model, f.registry, WithMaxRounds(3))

	turn, err := svc.Chat(context.Background(), session.Context{}, "loop forever")
	require.ErrorIs(t, err, ErrMaxRoundsExceeded)
	assert.Equal(t, 3, turn.Rounds)
	assert.Empty(t, turn.Answer)
	assert.Len(t, model.requests, 3)
}

func TestChat_DefaultMaxRounds(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("loop", "read_csv_tool", `{}`)),
	}}
	svc := NewService(model, f.registry, WithMaxRounds(0))

	_, err := svc.Chat(context.Background(), session.Context{}, "loop forever")
	require.ErrorIs(t, err, ErrMaxRoundsExceeded)
	assert.Len(t, model.requests, DefaultMaxRounds)
}

func TestChat_ModelError(t *testing.T) {
	f := newFixture(t)
	quota := errors.New("429 quota exceeded")
	model := &scriptedModel{err: quota}
	svc := NewService(model, f.registry)

	turn, err := svc.Chat(context.Background(), session.Context{}, "hi")
	require.ErrorIs(t, err, ErrModelService)
	assert.ErrorIs(t, err, quota)
	assert.Empty(t, turn.Answer)
}

func TestChat_EmptyResponseIsModelError(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{{}}}
	svc := NewService(model, f.registry)

	_, err := svc.Chat(context.Background(), session.Context{}, "hi")
	require.ErrorIs(t, err, ErrModelService)
}

func TestChat_CallTimeoutAndOptions(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{textReply("ok")}}
	svc := NewService(model, f.registry,
		WithCallTimeout(time.Minute),
		WithCallOptions(llms.WithTemperature(0.2)))

	_, err := svc.Chat(context.Background(), session.Context{}, "hi")
	require.NoError(t, err)
	require.Len(t, model.deadlines, 1)
	assert.True(t, model.deadlines[0])
	assert.InDelta(t, 0.2, model.options[0].Temperature, 1e-9)
}

type recordingTracer struct {
	started  []int
	finished []int
	errs     []error
}

func (r *recordingTracer) ModelCallStarted(_ context.Context, call ModelCall) {
	r.started = append(r.started, call.Round)
}

func (r *recordingTracer) ModelCallFinished(_ context.Context, call ModelCall, _ models.Message, err error) {
	r.finished = append(r.finished, call.Round)
	r.errs = append(r.errs, err)
}

func TestChat_TracerSeesEveryCall(t *testing.T) {
	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("c1", "read_csv_tool", `{}`)),
		textReply("done"),
	}}
	tracer := &recordingTracer{}
	svc := NewService(model, f.registry, WithTracer(tracer))

	_, err := svc.Chat(context.Background(), session.Context{}, "hi")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, tracer.started)
	assert.Equal(t, []int{1, 2}, tracer.finished)
	assert.Equal(t, []error{nil, nil}, tracer.errs)
}

func TestZapTracer_LogsCalls(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := &ZapTracer{logger: zap.New(core), countTokens: estimateTokens}

	f := newFixture(t)
	model := &scriptedModel{script: []*llms.ContentResponse{
		toolReply(call("c1", "read_csv_tool", `{}`)),
		textReply("done"),
	}}
	svc := NewService(model, f.registry, WithTracer(tracer))
	_, err := svc.Chat(context.Background(), session.Context{}, "hi")
	require.NoError(t, err)

	started := logs.FilterMessage("Model call started").All()
	require.Len(t, started, 2)
	assert.Positive(t, started[0].ContextMap()["prompt_tokens"])
	finished := logs.FilterMessage("Model call finished").All()
	require.Len(t, finished, 2)
	assert.Equal(t, int64(1), finished[0].ContextMap()["round"])
	assert.Equal(t, []interface{}{"read_csv_tool"}, finished[0].ContextMap()["tool_calls"])
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abc"))
	assert.Equal(t, 2, estimateTokens("abcdefgh"))
}

func TestZapTracer_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := &ZapTracer{logger: zap.New(core), countTokens: estimateTokens}

	f := newFixture(t)
	svc := NewService(&scriptedModel{err: errors.New("boom")}, f.registry, WithTracer(tracer))
	_, err := svc.Chat(context.Background(), session.Context{}, "hi")
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("Model call failed").Len())
}
