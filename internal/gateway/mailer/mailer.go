package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Message is a contact form submission to forward.
type Message struct {
	Name    string
	Email   string
	Subject string
	Body    string
}

// Mailer delivers contact messages to the site owner.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Enabled() bool
}

// Noop accepts and drops every message.
type Noop struct{}

func (Noop) Send(context.Context, Message) error { return nil }
func (Noop) Enabled() bool                       { return false }

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES with the default AWS credential chain.
type SESMailer struct {
	client sesAPI
	from   string
	to     []string
}

func NewSESMailer(ctx context.Context, region, from string, to []string) (*SESMailer, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, fmt.Errorf("mailer: from address is required")
	}
	recipients := cleanAddresses(to)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("mailer: at least one recipient is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("mailer: load aws config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from, to: recipients}, nil
}

func (m *SESMailer) Enabled() bool { return true }

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = "(no subject)"
	}
	body := fmt.Sprintf("From: %s <%s>\n\n%s\n", msg.Name, msg.Email, msg.Body)
	input := &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &types.Destination{ToAddresses: m.to},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("[Diagnose Me] " + subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}
	if reply := strings.TrimSpace(msg.Email); reply != "" {
		input.ReplyToAddresses = []string{reply}
	}
	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}

func cleanAddresses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
