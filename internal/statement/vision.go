package statement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const visionPrompt = "You are a financial document parser. Extract ALL data from the attached investment statement.\n" +
	"Return ONLY valid JSON with this structure:\n" +
	`{"metadata":{"institution":"","accountNumber":"","accountType":"","statementPeriod":"","periodStart":"YYYY-MM-DD","periodEnd":"YYYY-MM-DD"},` +
	`"holdings":[{"security":"","units":0,"price":0,"value":0,"bookCost":0}],` +
	`"transactions":[{"date":"YYYY-MM-DD","description":"","type":"","shares":0,"price":0,"amount":0}],` +
	`"summary":{"totalValue":0,"cashBalance":0},` +
	`"fees":[{"date":"YYYY-MM-DD","description":"","amount":0}]}` + "\n" +
	"Extract EVERY transaction. Be precise with numbers.\n" +
	"Do NOT wrap the response in code fences. Output must begin with \"{\" and end with \"}\".\n"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// VisionExtractor sends the PDF inline to a Gemini model.
type VisionExtractor struct {
	models contentGenerator
	model  string
}

func NewVisionExtractor(ctx context.Context, apiKey, model string) (*VisionExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &VisionExtractor{models: client.Models, model: model}, nil
}

func (e *VisionExtractor) Extract(ctx context.Context, _ string, pdf []byte) (*Document, error) {
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: visionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdf,
					},
				},
			},
		},
	}

	resp, err := e.models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("%w: empty response from model", ErrExtraction)
	}

	var doc Document
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal model JSON: %w", err)
	}

	return &doc, nil
}

// cleanModelJSON strips Markdown fences and any prose around the JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}

		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}

	return s
}
