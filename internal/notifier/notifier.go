package notifier

import (
	"context"
	"fmt"

	"github.com/segyhp/loanlink/internal/config"
	"github.com/segyhp/loanlink/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Notifier is implemented by every delivery channel in this package.
type Notifier interface {
	Notify(ctx context.Context, recipient string, n domain.Notification) domain.Delivery
}

type disabled struct{}

func (disabled) Notify(context.Context, string, domain.Notification) domain.Delivery {
	return domain.Delivery{Skipped: true, Channel: "none"}
}

// withFallback tries primary, then fallback when primary did not deliver.
type withFallback struct {
	primary  Notifier
	fallback Notifier
	log      *logrus.Logger
}

func (c *withFallback) Notify(ctx context.Context, recipient string, n domain.Notification) domain.Delivery {
	d := c.primary.Notify(ctx, recipient, n)
	if d.Delivered || d.Skipped {
		return d
	}

	fd := c.fallback.Notify(ctx, recipient, n)
	if fd.Delivered {
		c.log.WithFields(logrus.Fields{
			"recipient": recipient,
			"primary":   d.Channel,
			"fallback":  fd.Channel,
		}).Info("notification handed to fallback channel")
		return fd
	}
	return d
}

// New builds the notifier chain selected by cfg. The chain is fixed for the
// life of the returned value. mailer may be nil to send over SMTP.
func New(cfg config.NotifierConfig, appURL string, mailer Mailer, client *redis.Client, log *logrus.Logger) (Notifier, error) {
	primary, err := channel(cfg.Transport, cfg, appURL, mailer, client, log)
	if err != nil {
		return nil, err
	}

	if cfg.Fallback == "" || cfg.Fallback == "none" || cfg.Fallback == cfg.Transport || cfg.Transport == "none" {
		return primary, nil
	}

	fallback, err := channel(cfg.Fallback, cfg, appURL, mailer, client, log)
	if err != nil {
		return nil, err
	}
	return &withFallback{primary: primary, fallback: fallback, log: log}, nil
}

func channel(name string, cfg config.NotifierConfig, appURL string, mailer Mailer, client *redis.Client, log *logrus.Logger) (Notifier, error) {
	switch name {
	case "smtp":
		return NewEmailNotifier(cfg, appURL, mailer, log), nil
	case "outbox":
		if client == nil {
			return nil, fmt.Errorf("notifier %q needs a redis client", name)
		}
		return NewOutboxNotifier(client, cfg.OutboxKey, log), nil
	case "none":
		return disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown notifier transport %q", name)
	}
}
