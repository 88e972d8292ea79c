package api

import (
	"log/slog"
	"net/http"
)

// Event identifies the type of security-relevant action being logged.
type Event string

const (
	EventLoginSuccess  Event = "login_success"
	EventLoginFailure  Event = "login_failure"
	EventCodeSent      Event = "code_sent"
	EventCodeSendError Event = "code_send_error"
	EventCodeRejected  Event = "code_rejected"
	EventTokenIssued   Event = "token_issued"
	EventTokenRejected Event = "token_rejected"
	EventFileUploaded  Event = "file_uploaded"
	EventFileDeleted   Event = "file_deleted"
	EventFileRenamed   Event = "file_renamed"
	EventForbidden     Event = "operation_forbidden"
)

// eventLogger emits structured security events. This is operational
// logging, not a durable audit trail.
type eventLogger struct {
	logger *slog.Logger
}

func newEventLogger(logger *slog.Logger) *eventLogger {
	return &eventLogger{logger: logger}
}

func (l *eventLogger) logEvent(event Event, r *http.Request, username string, attrs ...any) {
	args := append([]any{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("path", r.URL.Path),
	}, attrs...)
	if username != "" {
		args = append(args, slog.String("username", username))
	}
	l.logger.Info("security event", args...)
}

func (l *eventLogger) logFailure(event Event, r *http.Request, reason string, attrs ...any) {
	args := append([]any{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("path", r.URL.Path),
		slog.String("reason", reason),
	}, attrs...)
	l.logger.Warn("security event", args...)
}
