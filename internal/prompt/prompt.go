// Package prompt provides the user interaction collaborator scripts reach
// through ctx.ui: transient notices, blocking messages and questions.
package prompt

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Service is the prompt contract consumed by the compiler.
type Service interface {
	// Notice shows a transient message. It never blocks.
	Notice(message string, timeout time.Duration)
	// ShowMessage shows a message and waits until it is dismissed.
	ShowMessage(ctx context.Context, title, body string) error
	// Ask poses a question, optionally restricted to options. ok is false
	// when the question was dismissed without an answer.
	Ask(ctx context.Context, title, question string, options []string) (answer string, ok bool, err error)
}

// Headless is a Service for non-interactive runs. Notices and messages are
// logged; questions are answered from a queue of canned answers and are
// otherwise dismissed.
type Headless struct {
	logger *slog.Logger

	mu       sync.Mutex
	answers  []string
	notices  []string
	messages []Message
}

// Message is a title and body shown through ShowMessage.
type Message struct {
	Title string
	Body  string
}

var _ Service = (*Headless)(nil)

// NewHeadless creates a headless service. answers are returned by Ask in
// order.
func NewHeadless(logger *slog.Logger, answers ...string) *Headless {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Headless{logger: logger, answers: answers}
}

func (h *Headless) Notice(message string, timeout time.Duration) {
	h.mu.Lock()
	h.notices = append(h.notices, message)
	h.mu.Unlock()
	h.logger.Info("notice", slog.String("message", message), slog.Duration("timeout", timeout))
}

func (h *Headless) ShowMessage(_ context.Context, title, body string) error {
	h.mu.Lock()
	h.messages = append(h.messages, Message{Title: title, Body: body})
	h.mu.Unlock()
	h.logger.Info("message", slog.String("title", title), slog.String("body", body))
	return nil
}

func (h *Headless) Ask(_ context.Context, title, question string, options []string) (string, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.answers) == 0 {
		h.logger.Warn("question dismissed in non-interactive mode",
			slog.String("title", title), slog.String("question", question))
		return "", false, nil
	}
	answer := h.answers[0]
	h.answers = h.answers[1:]
	h.logger.Info("question answered",
		slog.String("question", question), slog.Any("options", options), slog.String("answer", answer))
	return answer, true, nil
}

// Notices returns the notices shown so far.
func (h *Headless) Notices() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.notices...)
}

// Messages returns the messages shown so far.
func (h *Headless) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.messages...)
}
