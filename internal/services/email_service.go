package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/config"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/metrics"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"gopkg.in/gomail.v2"
)

// EmailSender delivers email confirmation codes
type EmailSender interface {
	SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

const verificationSubject = "Код подтверждения почты"

func verificationBodies(code string, expiresAt time.Time) (html, text string) {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Подтверждение почты</h2>
    <p>Ваш код подтверждения:</p>
    <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">%s</p>
    <p>Код действителен %d мин. Если вы не регистрировались на форуме, просто проигнорируйте это письмо.</p>
</body>
</html>
`, code, minutes)

	text = fmt.Sprintf(`Подтверждение почты

Ваш код подтверждения: %s

Код действителен %d мин. Если вы не регистрировались на форуме, просто проигнорируйте это письмо.
`, code, minutes)

	return html, text
}

// NewEmailSender builds the sender selected by configuration
func NewEmailSender(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (EmailSender, error) {
	switch cfg.Provider {
	case "ses":
		return NewSESEmailSender(ctx, cfg.Region, cfg.FromAddress, logger)
	case "smtp":
		return NewSMTPEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.FromAddress, logger), nil
	case "log", "":
		return NewLogEmailSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Provider)
	}
}

// SESEmailSender sends emails using AWS SES
type SESEmailSender struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

func NewSESEmailSender(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESEmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESEmailSender{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

func (s *SESEmailSender) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	htmlBody, textBody := verificationBodies(code, expiresAt)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(verificationSubject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
				Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		metrics.EmailsSentTotal.WithLabelValues("ses", "error").Inc()
		s.logger.Error("failed to send verification code via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.EmailsSentTotal.WithLabelValues("ses", "ok").Inc()
	s.logger.Info("verification code sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// SMTPEmailSender sends emails through a plain SMTP relay
type SMTPEmailSender struct {
	dialer      *gomail.Dialer
	fromAddress string
	logger      *slog.Logger
}

func NewSMTPEmailSender(host string, port int, user, password, fromAddress string, logger *slog.Logger) *SMTPEmailSender {
	return &SMTPEmailSender{
		dialer:      gomail.NewDialer(host, port, user, password),
		fromAddress: fromAddress,
		logger:      logger,
	}
}

func (s *SMTPEmailSender) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	htmlBody, textBody := verificationBodies(code, expiresAt)

	m := gomail.NewMessage()
	m.SetHeader("From", s.fromAddress)
	m.SetHeader("To", email)
	m.SetHeader("Subject", verificationSubject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		metrics.EmailsSentTotal.WithLabelValues("smtp", "error").Inc()
		s.logger.Error("failed to send verification code via SMTP",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.EmailsSentTotal.WithLabelValues("smtp", "ok").Inc()
	s.logger.Info("verification code sent", slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}

// LogEmailSender writes codes to the log instead of delivering them.
// Development only.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	metrics.EmailsSentTotal.WithLabelValues("log", "ok").Inc()
	s.logger.Info("verification code issued",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("code", code),
		slog.Time("expires_at", expiresAt))
	return nil
}
