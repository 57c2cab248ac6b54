package gemini

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spigell/linkedai/internal/conversation"
	"github.com/spigell/linkedai/internal/tools"
	"github.com/spigell/linkedai/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Generate sends the conversation to Gemini with the given tools declared and
// returns the reply as an assistant message. Calls without an ID get a generated one.
func (c *Client) Generate(ctx context.Context, messages []conversation.Message, schemas []tools.Schema) (conversation.Message, error) {
	contents, system := toContents(messages)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(schemas) > 0 {
		config.Tools = []*genai.Tool{toTool(schemas)}
	}

	c.logger.Debug("gemini chat request",
		zap.Int("messages", len(contents)),
		zap.Int("tools", len(schemas)),
	)

	resp, err := c.generate(ctx, contents, config)
	if err != nil {
		return conversation.Message{}, err
	}

	text, functionCalls := collectParts(resp)

	calls := make([]conversation.ToolCall, 0, len(functionCalls))
	for _, fc := range functionCalls {
		id := strings.TrimSpace(fc.ID)
		if id == "" {
			id = uuid.NewString()
		}

		args := fc.Args
		if args == nil {
			args = map[string]any{}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			raw = []byte("{}")
		}

		calls = append(calls, conversation.ToolCall{ID: id, Name: fc.Name, Arguments: string(raw)})
	}

	c.logger.Debug("gemini chat response",
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, c.maxLogLen)),
		zap.Int("tool_calls", len(calls)),
	)

	return conversation.AssistantMessage(text, calls...), nil
}

// toContents converts the history into Gemini contents. The system message is
// returned separately, consecutive tool results are grouped into one user turn.
func toContents(messages []conversation.Message) ([]*genai.Content, string) {
	var (
		contents []*genai.Content
		system   string
		results  *genai.Content
	)

	flush := func() {
		if results != nil {
			contents = append(contents, results)
			results = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleSystem:
			system = strings.TrimSpace(msg.Content)
		case conversation.RoleUser:
			flush()
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		case conversation.RoleAssistant:
			flush()
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: decodeArgs(call.Arguments),
				}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case conversation.RoleTool:
			if results == nil {
				results = &genai.Content{Role: genai.RoleUser}
			}
			results.Parts = append(results.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.Name,
				Response: toolResponse(msg),
			}})
		}
	}
	flush()

	return contents, system
}

func decodeArgs(raw string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"raw": raw}
	}
	return args
}

func toolResponse(msg conversation.Message) map[string]any {
	if msg.IsError {
		return map[string]any{"error": msg.Content}
	}

	var output any
	if err := json.Unmarshal([]byte(msg.Content), &output); err != nil {
		output = msg.Content
	}
	return map[string]any{"output": output}
}

func toTool(schemas []tools.Schema) *genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, schema := range schemas {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        string(schema.Name),
			Description: schema.Description,
			Parameters:  toSchema(schema.Parameters),
		})
	}
	return &genai.Tool{FunctionDeclarations: declarations}
}

func toSchema(param *tools.Parameter) *genai.Schema {
	if param == nil {
		return nil
	}

	schema := &genai.Schema{
		Type:             genai.Type(strings.ToUpper(param.Type)),
		Description:      param.Description,
		Required:         param.Required,
		PropertyOrdering: param.Order,
		Minimum:          param.Minimum,
		Items:            toSchema(param.Items),
	}

	if len(param.Properties) > 0 {
		schema.Properties = make(map[string]*genai.Schema, len(param.Properties))
		for name, prop := range param.Properties {
			schema.Properties[name] = toSchema(prop)
		}
	}

	return schema
}
