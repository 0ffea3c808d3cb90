package llm

import (
	"context"
	"time"

	"github.com/RichardoC/csvchat/internal/models"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// ModelCall describes one completion request within a turn.
type ModelCall struct {
	Round    int
	Messages []models.Message
	Duration time.Duration
}

// Tracer observes model calls. Implementations must not alter the turn.
type Tracer interface {
	ModelCallStarted(ctx context.Context, call ModelCall)
	ModelCallFinished(ctx context.Context, call ModelCall, reply models.Message, err error)
}

// NopTracer records nothing.
type NopTracer struct{}

func (NopTracer) ModelCallStarted(context.Context, ModelCall)                          {}
func (NopTracer) ModelCallFinished(context.Context, ModelCall, models.Message, error) {}

// ZapTracer logs every model call with an estimated prompt size.
type ZapTracer struct {
	logger      *zap.Logger
	countTokens func(string) int
}

// NewZapTracer returns a tracer that counts tokens with the encoding of the
// given model, falling back to cl100k_base. The encoding is loaded here, so
// any download happens at startup and never inside a turn.
func NewZapTracer(logger *zap.Logger, model string) *ZapTracer {
	return &ZapTracer{logger: logger, countTokens: tokenCounter(logger, model)}
}

func tokenCounter(logger *zap.Logger, model string) func(string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		logger.Warn("Token encoding unavailable, estimating", zap.Error(err))
		return estimateTokens
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}
}

// estimateTokens assumes roughly four characters per token.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func (t *ZapTracer) ModelCallStarted(_ context.Context, call ModelCall) {
	tokens := 0
	for _, m := range call.Messages {
		tokens += t.countTokens(m.Content)
	}
	t.logger.Debug("Model call started",
		zap.Int("round", call.Round),
		zap.Int("messages", len(call.Messages)),
		zap.Int("prompt_tokens", tokens))
}

func (t *ZapTracer) ModelCallFinished(_ context.Context, call ModelCall, reply models.Message, err error) {
	if err != nil {
		t.logger.Error("Model call failed",
			zap.Int("round", call.Round),
			zap.Duration("duration", call.Duration),
			zap.Error(err))
		return
	}
	names := make([]string, len(reply.ToolCalls))
	for i, tc := range reply.ToolCalls {
		names[i] = tc.Name
	}
	t.logger.Info("Model call finished",
		zap.Int("round", call.Round),
		zap.Duration("duration", call.Duration),
		zap.Strings("tool_calls", names),
		zap.Int("completion_tokens", t.countTokens(reply.Content)))
}
