package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

var _ Notifier = (*SMTPNotifier)(nil)

// SMTPConfig carries the relay settings for the SMTP notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// SMTPNotifier sends OTP emails through an SMTP relay.
type SMTPNotifier struct {
	client *gomail.Client
	sender string
}

// NewSMTPNotifier builds the SMTP client. The connection is dialed per send,
// not held open.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("mail.NewSMTPNotifier: %w", err)
	}
	return &SMTPNotifier{client: client, sender: cfg.Sender}, nil
}

func (n *SMTPNotifier) SendVerifyOTP(ctx context.Context, email, pin string) error {
	body := fmt.Sprintf(verifyTemplate, mailCSS, pin)
	return n.send(ctx, email, "Welcome to LeetBase! Confirm your email", body)
}

func (n *SMTPNotifier) SendResetOTP(ctx context.Context, email, pin string) error {
	body := fmt.Sprintf(resetTemplate, mailCSS, pin)
	return n.send(ctx, email, "LeetBase Password Reset Request", body)
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat("LeetBase", n.sender); err != nil {
		return fmt.Errorf("mail.send from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mail.send to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mail.send to %q: %w", to, err)
	}
	return nil
}

const mailCSS = `<style>body{font-family:Arial,sans-serif;background-color:#f4f4f4;margin:0;padding:0;display:flex;justify-content:center;align-items:center;min-height:100vh}.container{background:#fff;padding:40px;border-radius:12px;box-shadow:0 4px 12px rgba(0,0,0,0.1);text-align:center}h1{color:#333}p{font-size:18px;color:#555}.pin{font-size:32px;font-weight:bold;letter-spacing:4px;background:#eee;display:inline-block;padding:10px 20px;border-radius:8px;margin:20px 0}</style>`

const verifyTemplate = `<!DOCTYPE html><html><head>%s</head><body><div class="container"><h1>Welcome to LeetBase!</h1><p>Thank you for signing up. Please confirm your email using the verification code below:</p><div class="pin">%s</div><p>If you didn't sign up for LeetBase, please ignore this email.</p></div></body></html>`

const resetTemplate = `<!DOCTYPE html><html><head>%s</head><body><div class="container"><h1>Reset Your LeetBase Password</h1><p>We received a request to reset your password. Use the verification code below to proceed:</p><div class="pin">%s</div><p>If you didn't request a password reset, please ignore this email.</p></div></body></html>`
