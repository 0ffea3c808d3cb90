package llm

import (
	"fmt"

	"github.com/RichardoC/csvchat/internal/models"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// toMessageContent converts conversation history into the model's wire form.
func toMessageContent(history []models.Message) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case models.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case models.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if m.Content != "" || !m.HasToolCalls() {
				mc.Parts = append(mc.Parts, llms.TextPart(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if args == "" {
					args = "{}"
				}
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:           tc.ID,
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: tc.Name, Arguments: args},
				})
			}
			out = append(out, mc)
		case models.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: m.ToolCallID,
					Name:       m.ToolName,
					Content:    m.Content,
				}},
			})
		default:
			return nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	return out, nil
}

// fromChoice builds the assistant message for a model response. Calls that
// arrive without an ID get a generated one so results can still be paired.
func fromChoice(choice *llms.ContentChoice) models.Message {
	msg := models.Message{Role: models.RoleAssistant, Content: choice.Content}
	for _, tc := range choice.ToolCalls {
		call := models.ToolCall{ID: tc.ID}
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if tc.FunctionCall != nil {
			call.Name = tc.FunctionCall.Name
			call.Arguments = tc.FunctionCall.Arguments
		}
		msg.ToolCalls = append(msg.ToolCalls, call)
	}
	return msg
}
