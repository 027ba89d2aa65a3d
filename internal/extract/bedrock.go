package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/supplyvault/compliance-monitor/internal/config"
	"github.com/supplyvault/compliance-monitor/internal/domain"
)

const extractionSystemPrompt = `You extract supplier compliance certificate data for an apparel industry platform.
Given the text of a certificate document, respond with ONLY a JSON object (no prose, no markdown) with these keys:
  supplier_name       string, the certified company
  certification_type  one of: GOTS, OEKO_TEX, SA8000, BSCI, ISO_14001, FAIR_TRADE, GRS, OTHER
  certificate_number  string, empty if absent
  issuing_body        string, empty if absent
  issue_date          YYYY-MM-DD or empty
  expiry_date         YYYY-MM-DD or empty
  confidence          number 0..1, your confidence that the fields are correct
Use OTHER when the standard is not in the list. Never invent values.`

// BedrockExtractor extracts certification fields using Claude on AWS
// Bedrock. All document content stays within AWS.
type BedrockExtractor struct {
	client  *bedrockruntime.Client
	modelID string
}

// bedrockMessage mirrors the Anthropic messages format Bedrock expects.
type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// extractionPayload is what the model is asked to produce.
type extractionPayload struct {
	SupplierName      string  `json:"supplier_name"`
	CertificationType string  `json:"certification_type"`
	CertificateNumber string  `json:"certificate_number"`
	IssuingBody       string  `json:"issuing_body"`
	IssueDate         string  `json:"issue_date"`
	ExpiryDate        string  `json:"expiry_date"`
	Confidence        float64 `json:"confidence"`
}

// NewBedrockExtractor creates a Bedrock-backed extractor.
func NewBedrockExtractor(ctx context.Context, cfg appconfig.ExtractionConfig) (*BedrockExtractor, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &BedrockExtractor{
		client:  bedrockruntime.NewFromConfig(awsCfg),
		modelID: cfg.ModelID,
	}, nil
}

// Extract sends the document text to the model and parses its JSON reply.
func (e *BedrockExtractor) Extract(ctx context.Context, documentText string) (ExtractedFields, error) {
	reqBody := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		System:           extractionSystemPrompt,
		Messages: []bedrockMessage{{
			Role:    "user",
			Content: []bedrockContentBlock{{Type: "text", Text: documentText}},
		}},
		Temperature: 0,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return ExtractedFields{}, fmt.Errorf("marshal request: %w", err)
	}

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return ExtractedFields{}, fmt.Errorf("invoke model: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return ExtractedFields{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Content) == 0 {
		return ExtractedFields{}, fmt.Errorf("empty model response")
	}

	return parsePayload(resp.Content[0].Text)
}

// parsePayload decodes the model's JSON reply, tolerating surrounding
// markdown fences some models add despite the prompt.
func parsePayload(text string) (ExtractedFields, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var p extractionPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return ExtractedFields{}, fmt.Errorf("parse extraction payload: %w", err)
	}

	fields := ExtractedFields{
		SupplierName:      strings.TrimSpace(p.SupplierName),
		CertificationType: normalizeType(p.CertificationType),
		CertificateNumber: strings.TrimSpace(p.CertificateNumber),
		IssuingBody:       strings.TrimSpace(p.IssuingBody),
		Confidence:        p.Confidence,
	}
	if fields.Confidence < 0 {
		fields.Confidence = 0
	}
	if fields.Confidence > 1 {
		fields.Confidence = 1
	}
	if d := parseDate(p.IssueDate); d != nil {
		fields.IssueDate = d
	}
	if d := parseDate(p.ExpiryDate); d != nil {
		fields.ExpiryDate = d
	}
	return fields, nil
}

func normalizeType(s string) domain.CertificationType {
	t := domain.CertificationType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range domain.KnownCertificationTypes() {
		if t == known {
			return t
		}
	}
	return domain.CertOther
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
