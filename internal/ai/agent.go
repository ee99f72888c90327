package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"retail-sim/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"github.com/shopspring/decimal"
)

// Advisor asks an LLM for next-week decisions. Its output is a suggestion only: the
// caller feeds it through the same merge and validation as player input.
type Advisor interface {
	Suggest(ctx context.Context, brief string, facts *Briefing) (*Advice, error)
}

type Agent struct {
	client *openai.Client
	model  string
}

func NewAgent(apiKey, model string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	if model == "" {
		model = string(shared.ChatModelGPT4oMini)
	}
	return &Agent{client: &client, model: model}
}

func (a *Agent) Suggest(ctx context.Context, brief string, facts *Briefing) (*Advice, error) {
	briefing, err := facts.Render(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to gather advisor context: %w", err)
	}

	prompt := fmt.Sprintf(`You are the merchandising planner of a fashion retailer running a 15-week season.
Propose decisions for the current draft week only.
Rules:
1. Use only product, supplier, fabric, method and shipping keys that appear in the context.
2. Money and discount values are decimal strings (e.g. "119.00", "0.10"). Use "" to leave a value unchanged.
3. Production quantities must be whole multiples of the batch size and arrive by the deadline week.
4. Never plan to sell below unit cost.
5. Explain your reasoning briefly in the rationale.

%s
Player request: %s`, briefing, brief)

	schemaMap, err := schemaAsMap(generateSchema())
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(a.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "weekly_decisions",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Suggested decisions for one week of the season"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}
	return ParseAdvice([]byte(content))
}

// ParseAdvice decodes a model reply and checks that every decimal field parses.
func ParseAdvice(content []byte) (*Advice, error) {
	var advice Advice
	if err := json.Unmarshal(content, &advice); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if _, err := advice.Decisions(); err != nil {
		return nil, fmt.Errorf("advice validation failed: %w", err)
	}
	return &advice, nil
}

func schemaAsMap(s *jsonschema.Schema) (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return out, nil
}

func generateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&Advice{})
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// DecisionSchema describes the decisions payload accepted by every adapter.
// Decimals travel as strings.
func DecisionSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == decimalType {
				return &jsonschema.Schema{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`}
			}
			return nil
		},
	}
	return reflector.Reflect(&core.Decisions{})
}
