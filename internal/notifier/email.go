package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/segyhp/loanlink/internal/config"
	"github.com/segyhp/loanlink/internal/domain"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

const ChannelEmail = "email"

// Mailer sends a composed message.
type Mailer interface {
	Send(ctx context.Context, e *email.Email) error
}

type smtpMailer struct {
	addr string
	auth smtp.Auth
}

// NewSMTPMailer creates a Mailer that authenticates with PLAIN auth.
func NewSMTPMailer(cfg config.NotifierConfig) Mailer {
	return &smtpMailer{
		addr: fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		auth: smtp.PlainAuth("", smtpUsername(cfg), cfg.SMTPPassword, cfg.SMTPHost),
	}
}

func (m *smtpMailer) Send(_ context.Context, e *email.Email) error {
	return e.Send(m.addr, m.auth)
}

// EmailNotifier delivers notifications by mail.
type EmailNotifier struct {
	cfg    config.NotifierConfig
	appURL string
	mailer Mailer
	log    *logrus.Logger
}

func NewEmailNotifier(cfg config.NotifierConfig, appURL string, mailer Mailer, log *logrus.Logger) *EmailNotifier {
	if mailer == nil {
		mailer = NewSMTPMailer(cfg)
	}
	return &EmailNotifier{
		cfg:    cfg,
		appURL: appURL,
		mailer: mailer,
		log:    log,
	}
}

// Configured reports whether enough SMTP settings are present to try sending.
func (n *EmailNotifier) Configured() bool {
	return n.cfg.SMTPHost != "" && n.cfg.SenderEmail != "" && n.cfg.SMTPPassword != ""
}

func (n *EmailNotifier) Notify(ctx context.Context, recipient string, notification domain.Notification) domain.Delivery {
	if !n.Configured() {
		n.log.WithField("recipient", recipient).Warn("email not configured, skipping notification")
		return domain.Delivery{Channel: ChannelEmail, Message: "email not configured"}
	}

	e := n.compose(recipient, notification)
	if err := n.mailer.Send(ctx, e); err != nil {
		n.log.WithError(err).WithFields(logrus.Fields{
			"recipient": recipient,
			"event":     notification.Event,
		}).Error("failed to send notification email")
		return domain.Delivery{Channel: ChannelEmail, Message: "email could not be delivered"}
	}

	n.log.Infof("Email sent to %s: %s", recipient, e.Subject)
	return domain.Delivery{Delivered: true, Channel: ChannelEmail}
}

func (n *EmailNotifier) compose(recipient string, notification domain.Notification) *email.Email {
	e := email.NewEmail()
	e.From = n.cfg.SenderEmail
	e.To = []string{recipient}
	e.Subject = subject(notification)
	e.Text = []byte(n.body(notification))
	return e
}

func subject(n domain.Notification) string {
	switch n.Event {
	case domain.EventLoanCreated:
		return "New Loan Agreement Request - " + headline(n.Loan)
	case domain.EventLoanUpdated:
		return "Loan Request Updated - " + headline(n.Loan)
	case domain.EventLoanAccepted:
		return "Loan Request Accepted"
	case domain.EventLoanRejected:
		return "Loan Request Rejected"
	case domain.EventLoanCancelled:
		return "Loan Request Cancelled"
	case domain.EventLoanDeleted:
		return "Loan Request Withdrawn"
	case domain.EventPaymentRecorded:
		if n.Payment != nil {
			return "Payment Recorded - " + n.Payment.Amount.StringFixed(2)
		}
		return "Payment Recorded"
	default:
		return "Loan Update"
	}
}

func headline(l domain.LoanView) string {
	if l.AssetType == domain.AssetTypeItem {
		if l.ItemName == "" {
			return "item loan"
		}
		return l.ItemName
	}
	return l.Amount.StringFixed(2)
}

func action(n domain.Notification) string {
	actor := n.Actor
	switch n.Event {
	case domain.EventLoanCreated:
		if n.ActorRole == domain.RoleBorrower {
			return fmt.Sprintf("%s is requesting to borrow from you.", actor)
		}
		return fmt.Sprintf("%s is offering to lend to you.", actor)
	case domain.EventLoanUpdated:
		return fmt.Sprintf("%s changed the terms of a pending loan request.", actor)
	case domain.EventLoanAccepted:
		return fmt.Sprintf("%s accepted your loan request. The loan is now active.", actor)
	case domain.EventLoanRejected:
		return fmt.Sprintf("%s rejected your loan request.", actor)
	case domain.EventLoanCancelled:
		return fmt.Sprintf("%s cancelled a pending loan request.", actor)
	case domain.EventLoanDeleted:
		return fmt.Sprintf("%s withdrew a pending loan request.", actor)
	case domain.EventPaymentRecorded:
		return fmt.Sprintf("%s recorded a payment.", actor)
	default:
		return fmt.Sprintf("%s updated a loan.", actor)
	}
}

func (n *EmailNotifier) body(notification domain.Notification) string {
	l := notification.Loan

	var b strings.Builder
	fmt.Fprintf(&b, "LoanLink - %s\n\n", subject(notification))
	fmt.Fprintf(&b, "%s\n\n", action(notification))

	b.WriteString("Loan Details:\n")
	if l.AssetType == domain.AssetTypeItem {
		fmt.Fprintf(&b, "- Item: %s\n", orDash(l.ItemName))
		if l.ItemDescription != "" {
			fmt.Fprintf(&b, "- Description: %s\n", l.ItemDescription)
		}
		if l.ItemCondition != "" {
			fmt.Fprintf(&b, "- Condition: %s\n", l.ItemCondition)
		}
	} else {
		fmt.Fprintf(&b, "- Amount: %s\n", l.Amount.StringFixed(2))
		if l.InterestType != "" {
			fmt.Fprintf(&b, "- Interest Rate: %s%% (%s)\n", l.Rate.String(), l.InterestType)
		} else {
			fmt.Fprintf(&b, "- Interest Rate: %s%%\n", l.Rate.String())
		}
	}
	if l.Months > 0 {
		fmt.Fprintf(&b, "- Term: %d months (%s)\n", l.Months, l.PaymentFrequency)
	}
	if l.Monthly.IsPositive() {
		fmt.Fprintf(&b, "- Monthly Payment: %s\n", l.Monthly.StringFixed(2))
	}
	fmt.Fprintf(&b, "- Total Repayment: %s\n", l.Total.StringFixed(2))

	if p := notification.Payment; p != nil {
		fmt.Fprintf(&b, "\nPayment: %s on %s", p.Amount.StringFixed(2), p.Date.Format("2006-01-02"))
		if p.Method != "" {
			fmt.Fprintf(&b, " by %s", p.Method)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Paid so far: %s of %s (%s)\n", l.Paid.StringFixed(2), l.Total.StringFixed(2), l.Status)
	}

	if n.appURL != "" {
		fmt.Fprintf(&b, "\nPlease visit %s to review this loan.\n", n.appURL)
	}
	b.WriteString("\n---\nThis is an automated notification from LoanLink.\n")
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func smtpUsername(cfg config.NotifierConfig) string {
	if cfg.SMTPUsername != "" {
		return cfg.SMTPUsername
	}
	return cfg.SenderEmail
}
