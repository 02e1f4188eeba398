// Package bootstrap wires configuration into the dialogue handler. Both the
// HTTP server and the Lambda entrypoint build their handler here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"bookstore-voice/handler"
	"bookstore-voice/internal/catalog"
	"bookstore-voice/internal/config"
	"bookstore-voice/internal/integrations/openai"
	"bookstore-voice/internal/integrations/paramstore"
	"bookstore-voice/internal/logging"
	"bookstore-voice/internal/repository"
	"bookstore-voice/internal/tracing"
	"bookstore-voice/internal/usecase"
)

const ServiceName = "bookstore-voice"

type App struct {
	Handler *handler.Handler

	shutdownTracing func(context.Context) error
}

// Shutdown flushes pending spans.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.shutdownTracing == nil {
		return nil
	}
	return a.shutdownTracing(ctx)
}

// AWSConfig loads the default AWS configuration chain.
func AWSConfig(ctx context.Context) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("bootstrap: load AWS config: %w", err)
	}
	return cfg, nil
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	blog := logging.NewComponentLogger(log, "bootstrap")

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:  ServiceName,
		Exporter:     cfg.Trace.Exporter,
		OTLPEndpoint: cfg.Trace.OTLPEndpoint,
	})
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*App, error) {
		return nil, errors.Join(err, shutdownTracing(ctx))
	}

	var (
		awsCfg aws.Config
		params *paramstore.Client
	)
	if cfg.NeedsAWS() {
		awsCfg, err = AWSConfig(ctx)
		if err != nil {
			return fail(err)
		}
		params, err = paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return fail(err)
		}
	}

	source, err := newSource(cfg.Catalog, awsCfg)
	if err != nil {
		return fail(err)
	}
	loader, err := usecase.NewCatalogLoader(source, log)
	if err != nil {
		return fail(err)
	}

	llmOpts := []openai.Option{
		openai.WithBaseURL(cfg.LLM.BaseURL),
		openai.WithTimeout(cfg.LLM.Timeout),
	}
	if key := secret(params, cfg.LLM.APIKey, cfg.LLM.APIKeyParam); key != nil {
		llmOpts = append(llmOpts, openai.WithKeySource(key))
	}
	llm, err := openai.NewClient(llmOpts...)
	if err != nil {
		return fail(err)
	}
	answers, err := usecase.NewAnswerService(llm, cfg.LLM.Model, cfg.Reply.MaxChars, log)
	if err != nil {
		return fail(err)
	}

	handlerOpts := []handler.Option{handler.WithLogger(log)}
	if cfg.Twilio.ValidateSignature {
		token := secret(params, cfg.Twilio.AuthToken, cfg.Twilio.AuthTokenParam)
		handlerOpts = append(handlerOpts, handler.WithSignatureValidation(token, cfg.Server.PublicURL))
	}
	h, err := handler.NewHandler(loader, answers, handlerOpts...)
	if err != nil {
		return fail(err)
	}

	blog.InfoContext(ctx, "dialogue handler ready",
		"catalog", source.Name(),
		"llm_base_url", cfg.LLM.BaseURL,
		"llm_model", cfg.LLM.Model,
		"validate_signature", cfg.Twilio.ValidateSignature,
		"trace_exporter", cfg.Trace.Exporter,
	)
	return &App{Handler: h, shutdownTracing: shutdownTracing}, nil
}

func newSource(cfg config.CatalogConfig, awsCfg aws.Config) (usecase.Source, error) {
	switch cfg.Source {
	case config.CatalogSourceDynamoDB:
		return repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.Table)
	case config.CatalogSourceFile:
		return catalog.NewFileSource(cfg.Path)
	default:
		return nil, fmt.Errorf("bootstrap: unknown catalog source %q", cfg.Source)
	}
}

// secret prefers an SSM parameter over a literal value. It returns nil when
// neither is configured.
func secret(params *paramstore.Client, value, param string) *paramstore.Secret {
	switch {
	case param != "" && params != nil:
		return paramstore.ParamSecret(params, param)
	case value != "":
		return paramstore.StaticSecret(value)
	default:
		return nil
	}
}
