package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"bookstore-voice/internal/domain"
	"bookstore-voice/internal/markup"
	"bookstore-voice/internal/tracing"
	"bookstore-voice/internal/usecase"
)

const (
	headerCorrelationID   = "X-Correlation-Id"
	headerTwilioSignature = "X-Twilio-Signature"

	contentTypeText = "text/plain; charset=utf-8"

	// StatusMessage is what GET / answers so operators can check liveness.
	StatusMessage = "Book Store Voice Assistant is running! Access /voice endpoint for Twilio integration."
)

const (
	pathRoot        = "/"
	pathVoice       = "/voice"
	pathHandleInput = "/handle-input"
)

type CatalogLoader interface {
	Load(ctx context.Context) []domain.Book
}

type Answerer interface {
	GenerateAnswer(ctx context.Context, query string, books []domain.Book) string
}

// SecretSource yields the Twilio auth token used to verify webhook
// signatures.
type SecretSource interface {
	Value(ctx context.Context) (string, error)
}

type Handler struct {
	catalog CatalogLoader
	answers Answerer
	log     *slog.Logger

	authToken SecretSource
	publicURL string
}

type Option func(*Handler)

func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithSignatureValidation rejects requests whose X-Twilio-Signature does not
// match. publicURL is the externally visible base URL Twilio signs against;
// when empty it is derived from the request.
func WithSignatureValidation(token SecretSource, publicURL string) Option {
	return func(h *Handler) {
		h.authToken = token
		h.publicURL = strings.TrimRight(publicURL, "/")
	}
}

func NewHandler(catalog CatalogLoader, answers Answerer, opts ...Option) (*Handler, error) {
	if catalog == nil {
		return nil, errors.New("handler: catalog loader must not be nil")
	}
	if answers == nil {
		return nil, errors.New("handler: answerer must not be nil")
	}
	h := &Handler{
		catalog: catalog,
		answers: answers,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With("component", "handler")
	return h, nil
}

func correlationID(fromHeader string) string {
	if id := strings.TrimSpace(fromHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

// mergeValues combines body and query parameters the way http.Request.Form
// does: body values first, so Get prefers them.
func mergeValues(post, query url.Values) url.Values {
	merged := make(url.Values, len(post)+len(query))
	for k, vs := range post {
		merged[k] = append(merged[k], vs...)
	}
	for k, vs := range query {
		merged[k] = append(merged[k], vs...)
	}
	return merged
}

func turnFromForm(form url.Values) domain.Turn {
	return domain.Turn{
		SpeechResult: strings.TrimSpace(form.Get("SpeechResult")),
		CallSID:      form.Get("CallSid"),
		AccountSID:   form.Get("AccountSid"),
		From:         form.Get("From"),
		To:           form.Get("To"),
		CallStatus:   form.Get("CallStatus"),
	}
}

// dialogue produces the markup for one provider callback. It never fails:
// errors and panics alike become the terminal apology document.
func (h *Handler) dialogue(ctx context.Context, log *slog.Logger, path string, form url.Values) (doc string) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = unhandled(ctx, log, "dialogue panicked", "panic",
				fmt.Errorf("handler: panic: %v", rec), "stack", string(debug.Stack()))
		}
	}()

	turn := turnFromForm(form)
	log = log.With(
		"call_sid", turn.CallSID,
		"account_sid", turn.AccountSID,
		"from", turn.From,
		"to", turn.To,
		"call_status", turn.CallStatus,
	)

	var err error
	switch path {
	case pathHandleInput:
		doc, err = h.handleInput(ctx, log, turn)
	default:
		log.InfoContext(ctx, "call started, greeting caller")
		doc, err = markup.Gather(markup.Greeting)
	}
	if err != nil {
		return unhandled(ctx, log, "dialogue failed", "dialogue_error", err)
	}
	return doc
}

// unhandled logs err as UNHANDLED and returns the terminal apology document.
func unhandled(ctx context.Context, log *slog.Logger, msg, reason string, err error, extra ...any) string {
	uerr := usecase.NewError(usecase.ErrorUnhandled, reason, err)
	log.ErrorContext(ctx, msg, uerr.LogAttrs(extra...)...)
	return markup.Apology()
}

func (h *Handler) handleInput(ctx context.Context, log *slog.Logger, turn domain.Turn) (doc string, err error) {
	ctx, span := tracing.Start(ctx, "dialogue.turn",
		attribute.String("call.sid", turn.CallSID),
		attribute.Bool("speech.present", turn.SpeechResult != ""),
	)
	defer func() { tracing.End(span, err) }()

	if turn.SpeechResult == "" {
		log.InfoContext(ctx, "no speech captured, reprompting")
		return markup.Gather(markup.Reprompt, markup.FollowUp)
	}

	log.InfoContext(ctx, "caller asked", "speech_result", turn.SpeechResult)
	books := h.catalog.Load(ctx)
	answer := h.answers.GenerateAnswer(ctx, turn.SpeechResult, books)
	log.InfoContext(ctx, "answering caller", "answer", answer)

	return markup.Gather(answer, markup.FollowUp)
}
