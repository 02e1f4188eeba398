package handler

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	twilioclient "github.com/twilio/twilio-go/client"
)

func (h *Handler) validatesSignatures() bool {
	return h.authToken != nil
}

// verifySignature checks an X-Twilio-Signature against the full request URL
// and the POST parameters. It reports an error only when the auth token
// cannot be resolved.
func (h *Handler) verifySignature(ctx context.Context, requestURL string, form url.Values, signature string) (bool, error) {
	if !h.validatesSignatures() {
		return true, nil
	}
	if signature == "" {
		return false, nil
	}
	token, err := h.authToken.Value(ctx)
	if err != nil {
		return false, fmt.Errorf("handler: resolve auth token: %w", err)
	}
	if token == "" {
		return false, errors.New("handler: auth token is empty")
	}

	params := make(map[string]string, len(form))
	for k := range form {
		params[k] = form.Get(k)
	}
	validator := twilioclient.NewRequestValidator(token)
	return validator.Validate(requestURL, params, signature), nil
}
