package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"bookstore-voice/internal/markup"
)

// Handle serves the same routes as Routes for API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(headerValue(event.Headers, headerCorrelationID))
	path := event.Path
	if path == "" {
		path = pathRoot
	}
	log := h.log.With("correlation_id", corrID, "method", event.HTTPMethod, "path", path)

	switch path {
	case pathRoot:
		switch event.HTTPMethod {
		case http.MethodGet, http.MethodHead:
			return textResponse(corrID, http.StatusOK, StatusMessage), nil
		case http.MethodPost:
		default:
			return methodNotAllowed(corrID, "GET, HEAD, POST"), nil
		}
	case pathVoice, pathHandleInput:
		if event.HTTPMethod != http.MethodPost {
			return methodNotAllowed(corrID, http.MethodPost), nil
		}
	default:
		return textResponse(corrID, http.StatusNotFound, "404 page not found"), nil
	}

	postForm, err := eventPostForm(event)
	if err != nil {
		return markupResponse(corrID, unhandled(ctx, log, "failed to parse form", "invalid_form", err)), nil
	}

	ok, err := h.verifySignature(ctx, h.eventURL(event, path), postForm, headerValue(event.Headers, headerTwilioSignature))
	if err != nil {
		return markupResponse(corrID, unhandled(ctx, log, "failed to verify signature", "signature_check_error", err)), nil
	}
	if !ok {
		log.WarnContext(ctx, "rejected request with invalid signature")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusForbidden,
			Headers:    map[string]string{headerCorrelationID: corrID},
		}, nil
	}

	return markupResponse(corrID, h.dialogue(ctx, log, path, mergeValues(postForm, eventQuery(event)))), nil
}

// eventPostForm decodes the form-encoded body. Only these values take part in
// signature checks, matching http.Request.PostForm.
func eventPostForm(event events.APIGatewayProxyRequest) (url.Values, error) {
	body := event.Body
	if event.IsBase64Encoded {
		raw, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, err
		}
		body = string(raw)
	}
	return url.ParseQuery(body)
}

func eventQuery(event events.APIGatewayProxyRequest) url.Values {
	if len(event.MultiValueQueryStringParameters) > 0 {
		return url.Values(event.MultiValueQueryStringParameters)
	}
	q := url.Values{}
	for k, v := range event.QueryStringParameters {
		q.Set(k, v)
	}
	return q
}

func (h *Handler) eventURL(event events.APIGatewayProxyRequest, path string) string {
	base := h.publicURL
	if base == "" {
		base = "https://" + headerValue(event.Headers, "Host")
	}
	u := base + path
	if len(event.QueryStringParameters) > 0 {
		q := url.Values{}
		for k, v := range event.QueryStringParameters {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}
	return u
}

// headerValue looks a header up case-insensitively; API Gateway passes them
// through as the client sent them.
func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func markupResponse(corrID, doc string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":      markup.ContentType,
			headerCorrelationID: corrID,
		},
		Body: doc,
	}
}

func textResponse(corrID string, status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":      contentTypeText,
			headerCorrelationID: corrID,
		},
		Body: body,
	}
}

func methodNotAllowed(corrID, allow string) events.APIGatewayProxyResponse {
	resp := textResponse(corrID, http.StatusMethodNotAllowed, "Method Not Allowed")
	resp.Headers["Allow"] = allow
	return resp
}
