package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/mail"
	"github.com/spec-kit/user-service/internal/worker"
)

const creationEmailTemplate = "mail/creationEmail"

// NotificationService turns user lifecycle events into outbound email.
// Delivery is best effort: failures are logged and never reach the caller.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     mail.Mailer
	worker     *worker.NotificationWorker
	logger     *zap.Logger
	cfg        config.NotificationConfig
	appName    string
	baseURL    string
}

// NotificationDependencies bundles collaborators for the notification service.
// Without a Worker, mail is sent inline on the publishing goroutine.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Mailer     mail.Mailer
	Worker     *worker.NotificationWorker
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.Config, deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		mailer:     deps.Mailer,
		worker:     deps.Worker,
		logger:     deps.Logger,
		cfg:        cfg.Notification,
		appName:    cfg.App.Name,
		baseURL:    strings.TrimRight(cfg.App.BaseURL, "/"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserCreated, n.handleUserCreated)
	n.dispatcher.Subscribe(events.EventUserUpdated, n.logEvent)
	n.dispatcher.Subscribe(events.EventUserDeleted, n.logEvent)
	n.dispatcher.Subscribe(events.EventUserActivated, n.logEvent)
}

func (n *NotificationService) handleUserCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserCreatedPayload)
	if !ok {
		n.logger.Warn("UserCreated without payload", zap.String("user_id", event.UserID))
		return nil
	}
	n.logger.Info("UserCreated", zap.String("user_id", event.UserID), zap.String("username", payload.Username))

	msg := n.creationEmail(payload)
	send := func(ctx context.Context) error { return n.mailer.Send(ctx, msg) }

	if n.worker != nil {
		n.worker.Submit("creation-email:"+payload.Username, send)
		return nil
	}
	if err := send(ctx); err != nil {
		n.logger.Error("creation email failed", zap.String("username", payload.Username), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) logEvent(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("user_id", event.UserID),
		zap.String("actor", event.Actor),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) creationEmail(p events.UserCreatedPayload) mail.Message {
	link := fmt.Sprintf("%s/account/activate?key=%s", n.baseURL, url.QueryEscape(p.ActivationKey))
	name := p.FirstName
	if name == "" {
		name = p.Username
	}
	return mail.Message{
		From:     n.cfg.EmailFrom,
		To:       p.Email,
		Subject:  fmt.Sprintf("%s account activation", n.appName),
		Template: creationEmailTemplate,
		LangKey:  p.LangKey,
		Params: map[string]string{
			"username":       p.Username,
			"activation_key": p.ActivationKey,
			"activation_url": link,
		},
		Body: fmt.Sprintf("Dear %s,\n\nAn account was created for you on %s. Open the link below to choose a password and activate it:\n\n%s\n",
			name, n.appName, link),
	}
}
