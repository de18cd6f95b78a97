package pipeline

import (
	"log/slog"
)

// Level is the severity of a user-visible notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is a message meant for the end user.
type Notification struct {
	Level   Level
	Message string
	Kind    Kind
	Status  int
}

// Notifier displays notifications. Implementations must not block.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Navigator moves the user interface to a route.
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(route string)

// Navigate calls f(route).
func (f NavigatorFunc) Navigate(route string) { f(route) }

// LogNotifier writes notifications to a structured logger. It is the
// default when no UI notifier is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n at a level matching n.Level.
func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"kind", n.Kind.String()}
	if n.Status > 0 {
		attrs = append(attrs, "status", n.Status)
	}
	switch n.Level {
	case LevelError:
		logger.Error(n.Message, attrs...)
	case LevelWarning:
		logger.Warn(n.Message, attrs...)
	default:
		logger.Info(n.Message, attrs...)
	}
}

type noopNavigator struct{}

func (noopNavigator) Navigate(string) {}

func levelFor(k Kind) Level {
	switch k {
	case KindSessionExpired, KindForbidden:
		return LevelWarning
	default:
		return LevelError
	}
}
