// Package notify is the presentation notification boundary: success and
// error toasts, validation message lists, and modal dismissal on a
// successful edit.
package notify

import "github.com/rs/zerolog/log"

// Notifier receives user-facing notifications from the resource store.
type Notifier interface {
	Success(message string)
	Error(message string)
	ValidationErrors(messages []string)
	DismissModal()
}

// NoOpNotifier discards all notifications.
type NoOpNotifier struct{}

var _ Notifier = NoOpNotifier{}

func (NoOpNotifier) Success(string)            {}
func (NoOpNotifier) Error(string)              {}
func (NoOpNotifier) ValidationErrors([]string) {}
func (NoOpNotifier) DismissModal()             {}

// LogNotifier writes notifications to the global zerolog logger. Useful
// for headless consumers and the demo wiring.
type LogNotifier struct{}

var _ Notifier = LogNotifier{}

func (LogNotifier) Success(message string) {
	log.Info().Str("kind", "success").Msg(message)
}

func (LogNotifier) Error(message string) {
	log.Warn().Str("kind", "error").Msg(message)
}

func (LogNotifier) ValidationErrors(messages []string) {
	log.Warn().Str("kind", "error").Int("count", len(messages)).Strs("messages", messages).Msg("validation failed")
}

func (LogNotifier) DismissModal() {}
