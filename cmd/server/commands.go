package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RichardoC/csvchat/internal/llm"
	"github.com/RichardoC/csvchat/internal/models"
	"github.com/RichardoC/csvchat/internal/session"
	"github.com/RichardoC/csvchat/internal/tools"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

func runAsk(cmd *cobra.Command, args []string) error {
	registry, err := newRegistry()
	if err != nil {
		return err
	}
	svc, err := newChatService(registry)
	if errors.Is(err, llm.ErrNotConfigured) {
		return fmt.Errorf("%w: set AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_API_KEY and AZURE_OPENAI_DEPLOYMENT_NAME, or OPENAI_API_KEY", err)
	}
	if err != nil {
		return err
	}

	turn, err := svc.Chat(cmd.Context(), session.Context{DatasetPath: filePath}, strings.Join(args, " "))
	if err != nil {
		return err
	}
	for _, m := range turn.Messages {
		if m.Role == models.RoleTool {
			logger.Debug("Tool result", zap.String("tool", m.ToolName), zap.String("result", m.Content))
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), turn.Answer)
	return nil
}

// runQuery and runInspect go through the tool registry so they resolve the
// file exactly as the assistant would.
func runQuery(cmd *cobra.Command, args []string) error {
	registry, err := newRegistry()
	if err != nil {
		return err
	}
	result := registry.Dispatch(cmd.Context(), tools.Query.Name(), map[string]any{
		tools.ArgQuery:    strings.Join(args, " "),
		tools.ArgFilePath: filePath,
	})
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	registry, err := newRegistry()
	if err != nil {
		return err
	}
	column, _ := cmd.Flags().GetString("column")

	id := tools.Inspect
	callArgs := map[string]any{tools.ArgFilePath: filePath}
	if column != "" {
		id = tools.AnalyzeColumn
		callArgs[tools.ArgColumnName] = column
	}
	fmt.Fprintln(cmd.OutOrStdout(), registry.Dispatch(cmd.Context(), id.Name(), callArgs))
	return nil
}

func runPing(cmd *cobra.Command, args []string) error {
	model, err := llm.NewModel(cfg.LLM, nil)
	if err != nil {
		return err
	}
	prompt := "Reply with a one-line greeting."
	if len(args) > 0 {
		prompt = strings.Join(args, " ")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetLLMTimeout())
	defer cancel()
	completion, err := llms.GenerateFromSinglePrompt(ctx, model, prompt, llm.CallOptions(cfg.LLM)...)
	if err != nil {
		return fmt.Errorf("%w: %w", llm.ErrModelService, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), completion)
	return nil
}
