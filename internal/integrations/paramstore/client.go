package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// tokenPayload is the JSON shape stored in SSM for secrets.
type tokenPayload struct {
	Token string `json:"token"`
}

// Client wraps an AWS SSM API for secret retrieval.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// GetParameter returns the decrypted raw value of a parameter.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// Token reads a parameter holding {"token":"..."} and returns the token.
func (c *Client) Token(ctx context.Context, name string) (string, error) {
	raw, err := c.GetParameter(ctx, name)
	if err != nil {
		return "", err
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal %q as token JSON: %w", name, err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", fmt.Errorf("paramstore: token in %q is empty", name)
	}
	return tp.Token, nil
}

// Secret resolves a token lazily and caches it for the process lifetime once
// a lookup succeeds. Failed lookups are not cached, so the next call retries.
// A Secret with a static value never touches SSM.
type Secret struct {
	value  string
	client *Client
	name   string

	mu       sync.Mutex
	resolved bool
}

// StaticSecret wraps a value that is already known.
func StaticSecret(value string) *Secret {
	return &Secret{value: value}
}

// ParamSecret defers to SSM parameter name on first use.
func ParamSecret(c *Client, name string) *Secret {
	return &Secret{client: c, name: name}
}

// Value returns the secret, fetching it from SSM until one fetch succeeds.
// The lookup ignores cancellation of ctx so a caller hanging up does not fail
// it for everyone waiting on the lock.
func (s *Secret) Value(ctx context.Context) (string, error) {
	if s == nil {
		return "", nil
	}
	if s.client == nil {
		return s.value, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.value, nil
	}
	v, err := s.client.Token(context.WithoutCancel(ctx), s.name)
	if err != nil {
		return "", err
	}
	s.value, s.resolved = v, true
	return v, nil
}
