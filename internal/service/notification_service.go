package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/spec-kit/mortgage-service/internal/config"
	"github.com/spec-kit/mortgage-service/internal/events"
	"github.com/spec-kit/mortgage-service/internal/repository"
)

// EmailSender is the subset of the SES client used for notifications.
type EmailSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// NewSESClient builds an SES client for the given region.
func NewSESClient(ctx context.Context, region string) (*ses.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return ses.NewFromConfig(cfg), nil
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	email      EmailSender
	users      repository.UserRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. A nil email sender disables
// email delivery but keeps the log trail.
func NewNotificationService(dispatcher events.Dispatcher, email EmailSender, users repository.UserRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		email:      email,
		users:      users,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventApplicationCreated, n.handleApplicationCreated)
	n.dispatcher.Subscribe(events.EventStatusChanged, n.handleStatusChanged)
}

func (n *NotificationService) handleApplicationCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ApplicationCreated",
		zap.String("application_id", event.ApplicationID),
		zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ApplicationStatusChanged",
		zap.String("application_id", event.ApplicationID),
		zap.Any("payload", event.Payload))

	payload, ok := event.Payload.(events.StatusChangedPayload)
	if ok {
		n.sendStatusEmail(ctx, event, payload)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendStatusEmail(ctx context.Context, event events.Event, payload events.StatusChangedPayload) {
	if n.email == nil || n.users == nil || strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}

	borrower, err := n.users.GetByID(ctx, event.BorrowerID)
	if err != nil {
		n.logger.Warn("borrower lookup failed for status email",
			zap.String("borrower_id", event.BorrowerID),
			zap.Error(err))
		return
	}

	subject := fmt.Sprintf("Your mortgage application is now %s", payload.NewStatus)
	body := fmt.Sprintf("Application %s moved from %s to %s.",
		event.ApplicationID, payload.PreviousStatus, payload.NewStatus)

	_, err = n.email.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(n.cfg.EmailFrom),
		Destination: &sestypes.Destination{
			ToAddresses: []string{borrower.Email},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.Warn("failed to send status email",
			zap.String("application_id", event.ApplicationID),
			zap.Error(err))
	}
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("application_id", event.ApplicationID),
		zap.String("event_type", string(event.Type)))
}
