package usecase

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"bookstore-voice/internal/domain"
	"bookstore-voice/internal/tracing"
)

// Source is any inventory backend: the CSV file or the DynamoDB table.
type Source interface {
	Name() string
	Books(ctx context.Context) ([]domain.Book, error)
}

// CatalogLoader reads the inventory fresh on every call and degrades to an
// empty table instead of failing the turn.
type CatalogLoader struct {
	source Source
	log    *slog.Logger
}

func NewCatalogLoader(source Source, log *slog.Logger) (*CatalogLoader, error) {
	if source == nil {
		return nil, errors.New("usecase: catalog source must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CatalogLoader{source: source, log: log.With("component", "catalog")}, nil
}

// Load never returns nil-with-error: failures are logged and produce an empty
// catalog.
func (l *CatalogLoader) Load(ctx context.Context) []domain.Book {
	ctx, span := tracing.Start(ctx, "catalog.load", attribute.String("catalog.source", l.source.Name()))

	books, err := l.source.Books(ctx)
	if err != nil {
		uerr := NewError(ErrorCatalogUnavailable, "catalog_read_error", err)
		tracing.End(span, uerr)
		l.log.ErrorContext(ctx, "failed to load catalog", uerr.LogAttrs("source", l.source.Name())...)
		return []domain.Book{}
	}
	span.SetAttributes(attribute.Int("catalog.books", len(books)))
	tracing.End(span, nil)

	l.log.DebugContext(ctx, "catalog loaded", "source", l.source.Name(), "books", len(books))
	if books == nil {
		books = []domain.Book{}
	}
	return books
}
