package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"lokalfakta/server/internal/models"
)

const (
	// MaxTitleLength is applied to the raw title before trimming
	MaxTitleLength = 200

	// DisplayTitleLength is the final cap on a title
	DisplayTitleLength = 120

	MaxDescriptionLength = 5000
	MaxTags              = 20
	MaxTagLength         = 50
)

var errEmptyContent = errors.New("generated content is empty")

const contentSchemaJSON = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"title": {"type": "string"},
		"description": {"type": "string"},
		"tags": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["title", "description", "tags"]
}`

var contentSchema = jsonschema.MustCompileString("listing_content.json", contentSchemaJSON)

// ResponseSchema returns the content schema in the form structured-output
// APIs accept, which also forbids extra properties
func ResponseSchema() map[string]interface{} {
	var schema map[string]interface{}
	if err := json.Unmarshal([]byte(contentSchemaJSON), &schema); err != nil {
		panic(err)
	}
	delete(schema, "$schema")
	schema["additionalProperties"] = false
	return schema
}

// ParseContent validates raw model output against the content schema and
// returns it sanitized
func ParseContent(raw string) (*models.GeneratedContent, error) {
	raw = stripCodeFence(raw)
	if raw == "" {
		return nil, errEmptyContent
	}

	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if err := contentSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("JSON schema validation failed: %w", err)
	}

	var content models.GeneratedContent
	if err := json.Unmarshal([]byte(raw), &content); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	sanitized := Sanitize(content)
	if sanitized.Title == "" || sanitized.Description == "" {
		return nil, errEmptyContent
	}
	return &sanitized, nil
}

// Sanitize trims and length-caps generated content
func Sanitize(content models.GeneratedContent) models.GeneratedContent {
	title := strings.TrimSpace(truncateRunes(content.Title, MaxTitleLength))
	title = strings.TrimSpace(truncateRunes(title, DisplayTitleLength))

	description := strings.TrimSpace(truncateRunes(strings.TrimSpace(content.Description), MaxDescriptionLength))

	tags := make([]string, 0, len(content.Tags))
	seen := make(map[string]bool, len(content.Tags))
	for _, tag := range content.Tags {
		tag = strings.TrimSpace(truncateRunes(strings.TrimSpace(tag), MaxTagLength))
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}

	return models.GeneratedContent{
		Title:       title,
		Description: description,
		Tags:        tags,
	}
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// stripCodeFence removes a markdown code fence some models wrap JSON in
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimPrefix(raw, "json")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
