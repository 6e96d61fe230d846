package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/vodhub/internal/events"
)

// AuthRecorder counts session lifecycle events.
type AuthRecorder interface {
	RecordAuth(event string)
}

// AuditService logs session lifecycle events and feeds the auth counters.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	recorder   AuthRecorder
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, recorder AuthRecorder) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		recorder:   recorder,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventSessionCreated, a.handleInfo)
	a.dispatcher.Subscribe(events.EventSessionRefreshed, a.handleDebug)
	a.dispatcher.Subscribe(events.EventSessionRotated, a.handleInfo)
	a.dispatcher.Subscribe(events.EventSessionEnded, a.handleInfo)
	a.dispatcher.Subscribe(events.EventSessionsRevoked, a.handleInfo)
	a.dispatcher.Subscribe(events.EventRefreshRejected, a.handleWarn)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleWarn)
}

func (a *AuditService) handleInfo(_ context.Context, event events.Event) error {
	a.record(event)
	a.logger.Info(string(event.Type), a.fields(event)...)
	return nil
}

// Refreshes happen every access-token lifetime per client; keep them out of info logs.
func (a *AuditService) handleDebug(_ context.Context, event events.Event) error {
	a.record(event)
	a.logger.Debug(string(event.Type), a.fields(event)...)
	return nil
}

func (a *AuditService) handleWarn(_ context.Context, event events.Event) error {
	a.record(event)
	a.logger.Warn(string(event.Type), a.fields(event)...)
	return nil
}

func (a *AuditService) record(event events.Event) {
	if a.recorder != nil {
		a.recorder.RecordAuth(string(event.Type))
	}
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("username", event.Actor.Username),
		zap.String("role", string(event.Actor.Role)),
		zap.String("kind", string(event.Actor.Kind)),
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	return fields
}
