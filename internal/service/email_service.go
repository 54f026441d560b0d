package service

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"piggybank/internal/log"
)

// EmailConfig holds the SES settings for outgoing mail
type EmailConfig struct {
	Region     string
	FromEmail  string
	FromName   string
	AppBaseURL string
	Debug      bool
}

// InvitationEmail is the content of a co-parent invitation
type InvitationEmail struct {
	To          string
	FamilyName  string
	InviterName string
	Code        string
	ExpiresAt   time.Time
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
	logger     *log.Logger
}

// NewEmailService creates a new email service. Without a sender address the
// service is created disabled and every send is skipped.
func NewEmailService(ctx context.Context, cfg EmailConfig, logger *log.Logger) (*EmailService, error) {
	logger = logger.WithComponent(log.ComponentEmail)

	if cfg.FromEmail == "" {
		logger.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: cfg.Debug, logger: logger}, nil
	}

	if cfg.Debug {
		logger.Debug("initializing email service",
			"region", cfg.Region,
			"from_email", cfg.FromEmail,
			"from_name", cfg.FromName,
			"app_base_url", cfg.AppBaseURL,
		)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email service enabled", "from_email", cfg.FromEmail, "region", cfg.Region)

	return &EmailService{
		client:     sesv2.NewFromConfig(awsCfg),
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: cfg.AppBaseURL,
		enabled:    true,
		debug:      cfg.Debug,
		logger:     logger,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendInvitationEmail mails an invite code to a prospective co-parent
func (s *EmailService) SendInvitationEmail(ctx context.Context, msg InvitationEmail) error {
	if !s.enabled {
		s.logger.InfoContext(ctx, "skipping email send (service disabled)", "kind", "invitation")
		return nil
	}

	subject, htmlBody, textBody := renderInvitation(s.appBaseURL, msg)

	if s.debug {
		s.logger.DebugContext(ctx, "sending invitation email",
			"subject", subject,
			"html_bytes", len(htmlBody),
			"text_bytes", len(textBody),
		)
	}

	return s.sendEmail(ctx, msg.To, subject, htmlBody, textBody)
}

func renderInvitation(appBaseURL string, msg InvitationEmail) (subject, htmlBody, textBody string) {
	joinLink := fmt.Sprintf("%s/join?code=%s", appBaseURL, msg.Code)
	expires := msg.ExpiresAt.UTC().Format("2 January 2006 15:04 MST")

	subject = fmt.Sprintf("You're invited to join %s on Piggy Bank", msg.FamilyName)

	htmlBody = fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #e86a92; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.code { font-family: monospace; font-size: 24px; letter-spacing: 4px; text-align: center; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Join %s</h1>
		</div>
		<div class="content">
			<p>%s has invited you to help manage the family piggy bank.</p>
			<p>Your invitation code:</p>
			<p class="code">%s</p>
			<p>Open <a href="%s">%s</a> to create your parent account.</p>
			<p><strong>This code expires on %s.</strong></p>
		</div>
		<div class="footer">
			<p>This is an automated email from Piggy Bank. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`,
		html.EscapeString(msg.FamilyName),
		html.EscapeString(msg.InviterName),
		msg.Code,
		joinLink, joinLink,
		expires,
	)

	textBody = fmt.Sprintf(`%s has invited you to help manage the %s piggy bank.

Your invitation code: %s

Create your parent account at:
%s

This code expires on %s.

---
This is an automated email from Piggy Bank. Please do not reply.
`, msg.InviterName, msg.FamilyName, msg.Code, joinLink, expires)

	return subject, htmlBody, textBody
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if s.debug && result.MessageId != nil {
		s.logger.DebugContext(ctx, "SES accepted message", "message_id", *result.MessageId)
	}
	s.logger.InfoContext(ctx, "email sent", "subject", subject)
	return nil
}
