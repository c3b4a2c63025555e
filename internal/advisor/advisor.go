package advisor

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/catalog"
	"github.com/Daringdeveloper25/L-Oreal-Routine-Builder/internal/completion"
)

var (
	// ErrMissingCredential is returned when no completion credential is configured. No request is sent.
	ErrMissingCredential = completion.ErrMissingCredential
	// ErrNoSelection is returned by Routine when no products are selected. No request is sent.
	ErrNoSelection = errors.New("advisor: no products selected")
	// ErrEmptyMessage is returned by Chat for blank input.
	ErrEmptyMessage = errors.New("advisor: empty message")
)

// Completer sends a transcript to a completion endpoint.
type Completer interface {
	Complete(ctx context.Context, messages []completion.Message) (string, error)
	HasCredential() bool
}

// Advisor drives the chat and routine flows against a Completer.
type Advisor struct {
	completer Completer
	logger    *zap.Logger
}

// New constructs an Advisor.
func New(completer Completer, logger *zap.Logger) *Advisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Advisor{completer: completer, logger: logger.Named("advisor")}
}

// HasCredential reports whether requests can be sent at all.
func (a *Advisor) HasCredential() bool {
	return a.completer != nil && a.completer.HasCredential()
}

// Chat appends input to conv and sends the whole transcript. The reply is appended on success.
// The user turn stays in the transcript even when the request fails.
func (a *Advisor) Chat(ctx context.Context, conv *Conversation, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyMessage
	}
	conv.append(Turn{Role: RoleUser, Content: input})
	if !a.HasCredential() {
		return "", ErrMissingCredential
	}

	start := time.Now()
	reply, err := a.completer.Complete(ctx, conv.messages())
	if err != nil {
		a.logger.Warn("chat completion failed",
			zap.Int("turns", conv.Len()),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}
	conv.append(Turn{Role: RoleAssistant, Content: reply})
	a.logger.Debug("chat completion", zap.Int("turns", conv.Len()), zap.Duration("latency", time.Since(start)))
	return reply, nil
}

// Routine requests a routine for products using a fresh two-turn transcript.
// It never reads or extends any chat transcript.
func (a *Advisor) Routine(ctx context.Context, products []catalog.Product) (string, error) {
	if len(products) == 0 {
		return "", ErrNoSelection
	}
	if !a.HasCredential() {
		return "", ErrMissingCredential
	}
	msgs := RoutineMessages(products)

	start := time.Now()
	reply, err := a.completer.Complete(ctx, msgs)
	if err != nil {
		a.logger.Warn("routine completion failed",
			zap.Int("products", len(products)),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}
	return reply, nil
}

// RoutineMessages builds the one-shot routine transcript.
func RoutineMessages(products []catalog.Product) []completion.Message {
	return []completion.Message{
		{Role: string(RoleSystem), Content: RoutineInstruction},
		{Role: string(RoleUser), Content: RoutineRequest(products)},
	}
}
