package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// ActionProposal is the agent's reading of a free-text request: exactly one
// engine action with its arguments. Nothing runs until a human confirms it.
type ActionProposal struct {
	Action     string  `json:"action" jsonschema_description:"Name of exactly one registered action"`
	Arguments  string  `json:"arguments" jsonschema_description:"JSON object encoded as a string that matches the action arguments schema"`
	Summary    string  `json:"summary" jsonschema_description:"One sentence the operator can confirm"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Normalize trims free-text fields and lowercases the action name.
func (p *ActionProposal) Normalize() {
	p.Action = strings.ToLower(strings.TrimSpace(p.Action))
	p.Arguments = strings.TrimSpace(p.Arguments)
	p.Summary = strings.TrimSpace(p.Summary)
	if p.Arguments == "" {
		p.Arguments = "{}"
	}
}

// Validate checks the proposal against the registry it was produced for.
func (p *ActionProposal) Validate(tools *ToolRegistry) error {
	if _, ok := tools.Get(p.Action); !ok {
		return fmt.Errorf("unknown action %q (allowed: %s)", p.Action, strings.Join(tools.Names(), ", "))
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %.2f outside [0, 1]", p.Confidence)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(p.Arguments), &args); err != nil {
		return fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	return nil
}

type AgentService interface {
	ProposeAction(ctx context.Context, request string, catalog string, tools *ToolRegistry) (*ActionProposal, error)
}

type Agent struct {
	client *openai.Client
}

func NewAgent(apiKey string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client}
}

func (a *Agent) ProposeAction(ctx context.Context, request string, catalog string, tools *ToolRegistry) (*ActionProposal, error) {
	actions, err := tools.Describe()
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(`You are the order desk assistant of a wholesale distributor.
Your goal is to turn the operator's request into exactly one action from the list below.
Rules:
1. Use ONLY actions and ids that appear below.
2. Quantities and amounts must be exact decimal strings (e.g. "12.50").
3. Put the action arguments, as a JSON object, into the "arguments" string.
4. Provide a confidence score (0.0-1.0).
5. Explain your reasoning.

Actions:
%s
Catalog:
%s

Request: %s`, actions, catalog, request)

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "engine_action_proposal",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap(ActionProposal{}),
					Description: param.NewOpt("One proposed inventory or ledger action"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}
	return ParseProposal(resp.OutputText(), tools)
}

// ParseProposal decodes, normalizes and validates a model response.
func ParseProposal(content string, tools *ToolRegistry) (*ActionProposal, error) {
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	var proposal ActionProposal
	if err := json.Unmarshal([]byte(content), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	proposal.Normalize()
	if err := proposal.Validate(tools); err != nil {
		return nil, fmt.Errorf("proposal validation failed: %w", err)
	}
	return &proposal, nil
}
