package chat

// Notifier surfaces user-visible feedback for chat actions. The UI's
// toast layer provides the implementation. Success fires immediately on
// the optimistic apply; Error fires exactly once per failed action,
// after rollback.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// Success implements Notifier.
func (NopNotifier) Success(string) {}

// Error implements Notifier.
func (NopNotifier) Error(string) {}
