package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const schemaName = "listing_content"

var (
	errNoChoices = errors.New("model returned no choices")
	errRefused   = errors.New("model refused the request")
)

// OpenAIOptions configures the OpenAI-backed strategies
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
}

// NewOpenAIStrategies returns the cascade in order: vision with a schema,
// text with a schema, then a plain JSON-object chat completion
func NewOpenAIStrategies(opts OpenAIOptions) []Strategy {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.VisionModel == "" {
		opts.VisionModel = opts.Model
	}

	requestOptions := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithRequestTimeout(opts.Timeout),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(requestOptions...)

	return []Strategy{
		&visionSchemaStrategy{client: client, model: opts.VisionModel},
		&textSchemaStrategy{client: client, model: opts.Model},
		&jsonObjectStrategy{client: client, model: opts.Model},
	}
}

func schemaResponseFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        schemaName,
				Description: openai.String("Title, description and tags of a commercial property listing"),
				Schema:      ResponseSchema(),
				Strict:      openai.Bool(true),
			},
		},
	}
}

func complete(ctx context.Context, client openai.Client, params openai.ChatCompletionNewParams) (string, error) {
	completion, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errNoChoices
	}

	message := completion.Choices[0].Message
	if message.Refusal != "" {
		return "", fmt.Errorf("%w: %s", errRefused, message.Refusal)
	}
	return strings.TrimSpace(message.Content), nil
}

// visionSchemaStrategy sends the photos along with the prompt
type visionSchemaStrategy struct {
	client openai.Client
	model  string
}

func (s *visionSchemaStrategy) Name() string { return "vision_schema" }

func (s *visionSchemaStrategy) Applicable(req Request) bool {
	return PublicImages(req.Images)
}

func (s *visionSchemaStrategy) Complete(ctx context.Context, req Request) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	for _, image := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    image,
			Detail: "low",
		}))
	}

	return complete(ctx, s.client, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(parts),
		},
		ResponseFormat: schemaResponseFormat(),
	})
}

// textSchemaStrategy asks for schema-constrained output from text alone
type textSchemaStrategy struct {
	client openai.Client
	model  string
}

func (s *textSchemaStrategy) Name() string { return "text_schema" }

func (s *textSchemaStrategy) Applicable(Request) bool { return true }

func (s *textSchemaStrategy) Complete(ctx context.Context, req Request) (string, error) {
	return complete(ctx, s.client, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: schemaResponseFormat(),
	})
}

// jsonObjectStrategy only requests a JSON object; its shape is checked
// after parsing
type jsonObjectStrategy struct {
	client openai.Client
	model  string
}

func (s *jsonObjectStrategy) Name() string { return "json_object" }

func (s *jsonObjectStrategy) Applicable(Request) bool { return true }

func (s *jsonObjectStrategy) Complete(ctx context.Context, req Request) (string, error) {
	return complete(ctx, s.client, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System + "\nReturn only the JSON object, without markdown."),
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
}
