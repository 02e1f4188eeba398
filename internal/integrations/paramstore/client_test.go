package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a simple fake implementing ssmAPI for tests.
type fakeAPI struct {
	getOut *ssm.GetParameterOutput
	getErr error
	// failFirst errors are returned, in order, before getOut/getErr.
	failFirst []error
	calls     int
	names     []string
	ctxErrs   []error
}

func (f *fakeAPI) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	f.names = append(f.names, *in.Name)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if len(f.failFirst) > 0 {
		err := f.failFirst[0]
		f.failFirst = f.failFirst[1:]
		return nil, err
	}
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func valueOut(v string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: strPtr(v)}}
}

func TestGetParameter_HappyPath(t *testing.T) {
	client, err := New(&fakeAPI{getOut: valueOut(`{"k":"v"}`)})
	require.NoError(t, err)
	v, err := client.GetParameter(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, `{"k":"v"}`, v)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: nil}}}
	client, err := New(api)
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing value")
}

func TestGetParameter_ApiError(t *testing.T) {
	client, err := New(&fakeAPI{getErr: errors.New("boom")})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "p")
	require.ErrorContains(t, err, "boom")
}

func TestGetParameter_ClientNotInitialized(t *testing.T) {
	_, err := (&Client{}).GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestGetParameter_EmptyName(t *testing.T) {
	client, err := New(&fakeAPI{})
	require.NoError(t, err)
	_, err = client.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestToken(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    string
		wantErr string
	}{
		{name: "json token", raw: `{"token":"sk-123"}`, want: "sk-123"},
		{name: "missing field", raw: `{"other":"v"}`, wantErr: "is empty"},
		{name: "malformed", raw: `{"broken`, wantErr: "unmarshal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := New(&fakeAPI{getOut: valueOut(tc.raw)})
			require.NoError(t, err)
			got, err := client.Token(context.Background(), "/bookstore/twilio-auth-token")
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSecret_FetchedOnce(t *testing.T) {
	api := &fakeAPI{getOut: valueOut(`{"token":"tok"}`)}
	client, err := New(api)
	require.NoError(t, err)
	s := ParamSecret(client, "/bookstore/llm-api-key")

	for i := 0; i < 3; i++ {
		v, err := s.Value(context.Background())
		require.NoError(t, err)
		require.Equal(t, "tok", v)
	}
	require.Equal(t, 1, api.calls, "SSM must only be called once per process lifetime")
	require.Equal(t, []string{"/bookstore/llm-api-key"}, api.names)
}

func TestSecret_ErrorIsNotCached(t *testing.T) {
	api := &fakeAPI{getErr: errors.New("ssm unavailable")}
	client, err := New(api)
	require.NoError(t, err)
	s := ParamSecret(client, "/bookstore/llm-api-key")

	_, err = s.Value(context.Background())
	require.ErrorContains(t, err, "ssm unavailable")
	_, err = s.Value(context.Background())
	require.ErrorContains(t, err, "ssm unavailable")
	require.Equal(t, 2, api.calls, "a failed lookup must be retried on the next call")
}

func TestSecret_RecoversAfterTransientFailure(t *testing.T) {
	api := &fakeAPI{
		getOut:    valueOut(`{"token":"tok"}`),
		failFirst: []error{errors.New("ThrottlingException: rate exceeded")},
	}
	client, err := New(api)
	require.NoError(t, err)
	s := ParamSecret(client, "/bookstore/twilio-auth-token")

	_, err = s.Value(context.Background())
	require.ErrorContains(t, err, "rate exceeded")

	for i := 0; i < 2; i++ {
		v, err := s.Value(context.Background())
		require.NoError(t, err)
		require.Equal(t, "tok", v)
	}
	require.Equal(t, 2, api.calls, "the value is cached once a lookup succeeds")
}

func TestSecret_IgnoresCallerCancellation(t *testing.T) {
	api := &fakeAPI{getOut: valueOut(`{"token":"tok"}`)}
	client, err := New(api)
	require.NoError(t, err)
	s := ParamSecret(client, "/bookstore/twilio-auth-token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := s.Value(ctx)
	require.NoError(t, err)
	require.Equal(t, "tok", v)
	require.Equal(t, []error{nil}, api.ctxErrs)

	v, err = s.Value(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok", v)
	require.Equal(t, 1, api.calls)
}

func TestSecret_StaticAndNil(t *testing.T) {
	v, err := StaticSecret("plain").Value(context.Background())
	require.NoError(t, err)
	require.Equal(t, "plain", v)

	var s *Secret
	v, err = s.Value(context.Background())
	require.NoError(t, err)
	require.Empty(t, v)
}
