package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RichardoC/csvchat/internal/models"
	"github.com/RichardoC/csvchat/internal/session"
	"github.com/RichardoC/csvchat/internal/tools"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

const (
	DefaultMaxRounds    = 10
	DefaultDatasetLabel = "demo_data.csv (default)"
)

// Service runs conversation turns against a tool-calling model.
type Service struct {
	model        llms.Model
	tools        *tools.Registry
	tracer       Tracer
	logger       *zap.Logger
	maxRounds    int
	callTimeout  time.Duration
	callOptions  []llms.CallOption
	defaultLabel string
}

type Option func(*Service)

func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxRounds bounds the model calls in one turn. Non-positive values keep
// the default.
func WithMaxRounds(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// WithCallTimeout applies a deadline to each model call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) { s.callTimeout = d }
}

// WithCallOptions adds options such as temperature to every model call.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(s *Service) { s.callOptions = append(s.callOptions, opts...) }
}

// WithDefaultDatasetLabel sets how the prompt names the dataset when the
// session has none bound.
func WithDefaultDatasetLabel(label string) Option {
	return func(s *Service) { s.defaultLabel = label }
}

func NewService(model llms.Model, registry *tools.Registry, opts ...Option) *Service {
	s := &Service{
		model:        model,
		tools:        registry,
		tracer:       NopTracer{},
		logger:       zap.NewNop(),
		maxRounds:    DefaultMaxRounds,
		defaultLabel: DefaultDatasetLabel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Turn is the full record of one user message and everything it produced.
type Turn struct {
	Context  session.Context
	Messages []models.Message
	Rounds   int
	Answer   string
}

type state int

const (
	stateAwaitingModel state = iota
	stateDispatchingTools
	stateDone
)

// Chat runs one turn to completion. The session context is fixed for the
// whole turn. On error the partial turn is returned for inspection but has
// no answer.
func (s *Service) Chat(ctx context.Context, sc session.Context, userText string) (*Turn, error) {
	turn := &Turn{
		Context: sc,
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: s.systemPrompt(sc)},
			{Role: models.RoleUser, Content: userText},
		},
	}

	st := stateAwaitingModel
	for st != stateDone {
		switch st {
		case stateAwaitingModel:
			if turn.Rounds >= s.maxRounds {
				s.logger.Warn("Turn stopped at round limit", zap.Int("max_rounds", s.maxRounds))
				return turn, fmt.Errorf("%w: limit is %d", ErrMaxRoundsExceeded, s.maxRounds)
			}
			reply, err := s.callModel(ctx, turn)
			if err != nil {
				return turn, err
			}
			turn.Messages = append(turn.Messages, reply)
			if reply.HasToolCalls() {
				st = stateDispatchingTools
			} else {
				st = stateDone
			}

		case stateDispatchingTools:
			last := turn.Messages[len(turn.Messages)-1]
			for _, call := range last.ToolCalls {
				turn.Messages = append(turn.Messages, models.Message{
					Role:       models.RoleTool,
					Content:    s.runTool(ctx, sc, call),
					ToolCallID: call.ID,
					ToolName:   call.Name,
				})
			}
			st = stateAwaitingModel
		}
	}

	turn.Answer = turn.Messages[len(turn.Messages)-1].Content
	return turn, nil
}

func (s *Service) callModel(ctx context.Context, turn *Turn) (models.Message, error) {
	turn.Rounds++
	call := ModelCall{Round: turn.Rounds, Messages: turn.Messages}
	s.tracer.ModelCallStarted(ctx, call)

	start := time.Now()
	reply, err := s.generate(ctx, turn.Messages)
	call.Duration = time.Since(start)

	s.tracer.ModelCallFinished(ctx, call, reply, err)
	return reply, err
}

func (s *Service) generate(ctx context.Context, history []models.Message) (models.Message, error) {
	content, err := toMessageContent(history)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %w", ErrModelService, err)
	}

	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	opts := append([]llms.CallOption{llms.WithTools(s.tools.Definitions())}, s.callOptions...)
	resp, err := s.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: %w", ErrModelService, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return models.Message{}, fmt.Errorf("%w: empty response", ErrModelService)
	}
	return fromChoice(resp.Choices[0]), nil
}

// runTool executes one requested call. Every failure is reported back to the
// model as text so the turn can continue.
func (s *Service) runTool(ctx context.Context, sc session.Context, call models.ToolCall) string {
	args, err := call.DecodeArguments()
	if err != nil {
		s.logger.Warn("Malformed tool arguments",
			zap.String("tool", call.Name),
			zap.String("call_id", call.ID),
			zap.Error(err))
		return fmt.Sprintf("Error: invalid arguments for tool '%s': %v", call.Name, err)
	}

	if sc.DatasetPath != "" {
		if v, ok := tools.StringArg(args, tools.ArgFilePath); !ok || strings.TrimSpace(v) == "" {
			args[tools.ArgFilePath] = sc.DatasetPath
		}
	}

	return s.tools.Dispatch(ctx, call.Name, args)
}

func (s *Service) systemPrompt(sc session.Context) string {
	return "You are a helpful assistant that can analyze CSV files. " +
		"You have access to tools to read CSV files, analyze specific columns, and query data. " +
		"When a user asks about CSV data, use the appropriate tool to help them. " +
		"The current CSV file path is: " + sc.DatasetLabel(s.defaultLabel)
}
