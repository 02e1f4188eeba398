package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"bookstore-voice/internal/domain"
	"bookstore-voice/internal/markup"
)

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Host":         "abc123.execute-api.eu-west-1.amazonaws.com",
		},
		Body: body,
	}
}

func TestHandle_Status(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{}, &stubAnswerer{})

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, StatusMessage, resp.Body)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_Greeting(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{}, &stubAnswerer{})

	for _, path := range []string{"/", "/voice"} {
		resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, path, "CallSid=CA123"))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, markup.ContentType, resp.Headers["Content-Type"])
		require.Equal(t, []string{markup.Greeting}, gatheredLines(t, resp.Body))
	}
}

func TestHandle_HandleInput_Base64Body(t *testing.T) {
	cat := &stubCatalog{books: []domain.Book{{Name: "Dune", Price: "12.99", Quantity: 5}}}
	ans := &stubAnswerer{answer: "Dune is in stock."}
	h := newTestHandler(t, cat, ans)

	form := url.Values{"SpeechResult": {"Do you have Dune?"}, "CallSid": {"CA123"}}
	event := makeEvent(http.MethodPost, "/handle-input", base64.StdEncoding.EncodeToString([]byte(form.Encode())))
	event.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"Dune is in stock.", markup.FollowUp}, gatheredLines(t, resp.Body))
	require.Equal(t, "Do you have Dune?", ans.query)
	require.Equal(t, 1, cat.calls)
}

func TestHandle_InvalidBase64Apologizes(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{}, &stubAnswerer{})

	event := makeEvent(http.MethodPost, "/handle-input", "!!not base64!!")
	event.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	r := parseMarkup(t, resp.Body)
	require.Empty(t, r.Gathers)
	require.Equal(t, markup.ErrorSorry, r.Says[0].Text)
}

func TestHandle_Routing(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{}, &stubAnswerer{})

	cases := []struct {
		method string
		path   string
		status int
	}{
		{method: http.MethodGet, path: "/voice", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/handle-input", status: http.StatusMethodNotAllowed},
		{method: http.MethodDelete, path: "/", status: http.StatusMethodNotAllowed},
		{method: http.MethodPost, path: "/ask", status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			resp, err := h.Handle(context.Background(), makeEvent(tc.method, tc.path, ""))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{}, &stubAnswerer{})

	event := makeEvent(http.MethodPost, "/voice", "")
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}

func TestHandle_Signature(t *testing.T) {
	const token = "twilio-auth-token"
	form := url.Values{"CallSid": {"CA123"}}
	h := newTestHandler(t, &stubCatalog{}, &stubAnswerer{}, WithSignatureValidation(staticToken(token), ""))

	event := makeEvent(http.MethodPost, "/voice", form.Encode())
	event.Headers["X-Twilio-Signature"] = sign(token, "https://abc123.execute-api.eu-west-1.amazonaws.com/voice", form)
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	event.Headers["X-Twilio-Signature"] = sign("other", "https://abc123.execute-api.eu-west-1.amazonaws.com/voice", form)
	resp, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, resp.Body)
}

func TestHandle_SpeechResultFromQueryString(t *testing.T) {
	ans := &stubAnswerer{answer: "Dune is in stock."}
	h := newTestHandler(t, &stubCatalog{}, ans)

	event := makeEvent(http.MethodPost, "/handle-input", "")
	event.QueryStringParameters = map[string]string{"SpeechResult": "Do you have Dune?"}
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, []string{"Dune is in stock.", markup.FollowUp}, gatheredLines(t, resp.Body))
	require.Equal(t, "Do you have Dune?", ans.query)

	event = makeEvent(http.MethodPost, "/handle-input", "SpeechResult=from+body")
	event.MultiValueQueryStringParameters = map[string][]string{"SpeechResult": {"from query"}}
	_, err = h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "from body", ans.query, "body values take precedence, as with net/http")
}
