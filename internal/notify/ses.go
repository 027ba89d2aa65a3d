package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/supplyvault/compliance-monitor/internal/config"
	"github.com/supplyvault/compliance-monitor/internal/pkg/logger"
)

// SESSender delivers alert emails through AWS SES using the SDK v2.
type SESSender struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	renderer  *templateRenderer
}

// NewSESSender creates an SES sender from config. Falls back to the default
// credential chain (IAM role on ECS) when no static keys are configured.
func NewSESSender(ctx context.Context, cfg appconfig.SESConfig) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESSender{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		renderer:  newTemplateRenderer(),
	}, nil
}

// SendExpiryAlert renders and delivers one alert email.
func (s *SESSender) SendExpiryAlert(ctx context.Context, email ExpiryAlertEmail) error {
	bindings := bindingsFor(email)

	subject, err := s.renderer.render(subjectTemplate, bindings)
	if err != nil {
		return fmt.Errorf("render subject: %w", err)
	}
	htmlBody, err := s.renderer.render(htmlTemplate, bindings)
	if err != nil {
		return fmt.Errorf("render html body: %w", err)
	}
	textBody, err := s.renderer.render(textTemplate, bindings)
	if err != nil {
		return fmt.Errorf("render text body: %w", err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{email.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("alert_kind"), Value: aws.String(alertKind(email))},
			{Name: aws.String("certification_type"), Value: aws.String(string(email.CertificationType))},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		log.Printf("[notify] SES send to %s failed: %v", logger.RedactEmail(email.To), err)
		return fmt.Errorf("ses send: %w", err)
	}
	logger.Info("alert email sent",
		"to", email.To,
		"kind", alertKind(email),
		"message_id", aws.ToString(result.MessageId),
	)
	return nil
}

func alertKind(e ExpiryAlertEmail) string {
	if e.IsRevocation() {
		return "revocation"
	}
	return fmt.Sprintf("expiry_%dd", e.DaysUntilExpiry)
}
