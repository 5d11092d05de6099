// Package notify delivers enforcement alerts to the child's desktop and to parents.
package notify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eliteGoblin/focusd/parentguard/internal/domain"
)

// Desktop shows a local desktop notification.
type Desktop struct {
	send func(title, message string, icon any) error
}

// NewDesktop creates a beeep-backed desktop notifier.
func NewDesktop() *Desktop {
	return &Desktop{send: beeep.Notify}
}

func (d *Desktop) Notify(_ context.Context, title, message string) error {
	return d.send(title, message, "")
}

const (
	// DefaultSlackTimeout bounds one webhook post.
	DefaultSlackTimeout = 10 * time.Second

	// DefaultQueueSize is the number of alerts Async buffers before dropping.
	DefaultQueueSize = 16

	// DefaultDeliveryTimeout bounds one Async delivery across every sink.
	DefaultDeliveryTimeout = 15 * time.Second
)

// Slack posts to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
}

// NewSlack creates a webhook notifier whose posts time out after
// DefaultSlackTimeout.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: DefaultSlackTimeout},
	}
}

func (s *Slack) Notify(ctx context.Context, title, message string) error {
	return slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, &slack.WebhookMessage{
		Text: "*" + title + "*\n" + message,
	})
}

// Multi fans out to every notifier and joins their errors.
type Multi []domain.Notifier

func (m Multi) Notify(ctx context.Context, title, message string) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Throttled drops notifications beyond one per interval (plus burst).
// A cycle runs every 30s, so without it a stuck cut would alert forever.
type Throttled struct {
	next    domain.Notifier
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewThrottled wraps next with a token bucket.
func NewThrottled(next domain.Notifier, every time.Duration, burst int, logger *zap.Logger) *Throttled {
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(every), burst),
		logger:  logger,
	}
}

func (t *Throttled) Notify(ctx context.Context, title, message string) error {
	if !t.limiter.Allow() {
		t.logger.Debug("notification throttled", zap.String("title", title))
		return nil
	}
	return t.next.Notify(ctx, title, message)
}

type alert struct {
	title, message string
}

// Async queues alerts and delivers them from Run, so a slow sink never
// holds up the caller. Alerts arriving while the queue is full are dropped.
type Async struct {
	next    domain.Notifier
	queue   chan alert
	timeout time.Duration
	logger  *zap.Logger
}

// NewAsync wraps next. A non-positive size or timeout uses the default.
func NewAsync(next domain.Notifier, size int, timeout time.Duration, logger *zap.Logger) *Async {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Async{
		next:    next,
		queue:   make(chan alert, size),
		timeout: timeout,
		logger:  logger,
	}
}

// Notify enqueues the alert and returns immediately.
func (a *Async) Notify(_ context.Context, title, message string) error {
	select {
	case a.queue <- alert{title: title, message: message}:
	default:
		a.logger.Warn("notification queue full, dropping", zap.String("title", title))
	}
	return nil
}

// Run delivers queued alerts until ctx is cancelled.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case al := <-a.queue:
			a.deliver(ctx, al)
		}
	}
}

func (a *Async) deliver(ctx context.Context, al alert) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.next.Notify(ctx, al.title, al.message); err != nil {
		a.logger.Warn("notification failed", zap.String("title", al.title), zap.Error(err))
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }

// Config selects the enabled sinks.
type Config struct {
	Desktop      bool
	SlackWebhook string
	MinInterval  time.Duration
}

// New builds the notifier described by cfg. It never returns nil.
func New(cfg Config, logger *zap.Logger) domain.Notifier {
	var sinks Multi
	if cfg.Desktop {
		sinks = append(sinks, NewDesktop())
	}
	if cfg.SlackWebhook != "" {
		sinks = append(sinks, NewSlack(cfg.SlackWebhook))
	}
	if len(sinks) == 0 {
		return Nop{}
	}
	if cfg.MinInterval <= 0 {
		return sinks
	}
	return NewThrottled(sinks, cfg.MinInterval, 1, logger)
}

var (
	_ domain.Notifier = (*Desktop)(nil)
	_ domain.Notifier = (*Slack)(nil)
	_ domain.Notifier = Multi(nil)
	_ domain.Notifier = (*Throttled)(nil)
	_ domain.Notifier = (*Async)(nil)
	_ domain.Notifier = Nop{}
)
