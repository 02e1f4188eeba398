package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"bookstore-voice/internal/domain"
)

// Apology is spoken whenever the model cannot produce an answer.
const Apology = "I'm sorry, but I couldn't retrieve that information right now."

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// AnswerService turns a caller question plus the inventory into spoken text.
type AnswerService struct {
	llm           LLMClient
	model         string
	maxReplyChars int
	log           *slog.Logger
}

func NewAnswerService(llm LLMClient, model string, maxReplyChars int, log *slog.Logger) (*AnswerService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	if maxReplyChars < 0 {
		maxReplyChars = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &AnswerService{
		llm:           llm,
		model:         model,
		maxReplyChars: maxReplyChars,
		log:           log.With("component", "answer"),
	}, nil
}

// GenerateAnswer makes exactly one model round trip. It always returns
// speakable text: the model's reply, or Apology when the call fails.
func (s *AnswerService) GenerateAnswer(ctx context.Context, query string, books []domain.Book) string {
	query = strings.TrimSpace(query)

	reply, err := s.llm.Chat(ctx, s.model, buildPromptMessages(query, books))
	if err == nil {
		reply = strings.TrimSpace(reply)
		if reply == "" {
			err = errors.New("usecase: empty model reply")
		}
	}
	if err != nil {
		uerr := NewError(ErrorInferenceFailed, inferenceReason(err), err)
		s.log.ErrorContext(ctx, "failed to query model", uerr.LogAttrs("model", s.model)...)
		return Apology
	}

	s.log.DebugContext(ctx, "model replied", "model", s.model, "reply_chars", len(reply))
	return truncateReply(reply, s.maxReplyChars)
}

func inferenceReason(err error) string {
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		if statusErr.HTTPStatusCode() == http.StatusTooManyRequests {
			return "llm_rate_limited"
		}
		return "llm_upstream_status"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "llm_timeout"
	}
	return "llm_error"
}
