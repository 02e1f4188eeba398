package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"bookstore-voice/internal/markup"
)

// maxFormBytes bounds a provider callback body; real ones are a few hundred
// bytes.
const maxFormBytes = 64 << 10

type correlationKey struct{}

// Routes returns the webhook surface. Unknown paths get 404 and known paths
// called with the wrong method get 405 from the mux itself.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.serveStatus)
	mux.HandleFunc("POST /{$}", h.serveDialogue)
	mux.HandleFunc("POST "+pathVoice, h.serveDialogue)
	mux.HandleFunc("POST "+pathHandleInput, h.serveDialogue)
	return h.withCorrelationID(mux)
}

func (h *Handler) withCorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := correlationID(r.Header.Get(headerCorrelationID))
		w.Header().Set(headerCorrelationID, id)
		ctx := context.WithValue(r.Context(), correlationKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requestLogger(ctx context.Context, r *http.Request) *slog.Logger {
	id, _ := ctx.Value(correlationKey{}).(string)
	return h.log.With("correlation_id", id, "method", r.Method, "path", r.URL.Path)
}

func (h *Handler) serveStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", contentTypeText)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, StatusMessage)
}

func (h *Handler) serveDialogue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.requestLogger(ctx, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeMarkup(w, unhandled(ctx, log, "failed to parse form", "invalid_form", err))
		return
	}

	ok, err := h.verifySignature(ctx, h.requestURL(r), r.PostForm, r.Header.Get(headerTwilioSignature))
	if err != nil {
		writeMarkup(w, unhandled(ctx, log, "failed to verify signature", "signature_check_error", err))
		return
	}
	if !ok {
		log.WarnContext(ctx, "rejected request with invalid signature")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	writeMarkup(w, h.dialogue(ctx, log, r.URL.Path, mergeValues(r.PostForm, r.URL.Query())))
}

func writeMarkup(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", markup.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// requestURL rebuilds the URL Twilio signed, preferring the configured public
// base since proxies and tunnels rewrite the host.
func (h *Handler) requestURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL + r.URL.RequestURI()
	}
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	} else if r.TLS == nil && strings.HasPrefix(r.Host, "localhost") {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
