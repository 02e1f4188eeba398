package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"bookstore-voice/internal/domain"
)

const (
	columnName     = "book_name"
	columnNameAlt  = "name"
	columnPrice    = "price"
	columnQuantity = "quantity"
)

// FileSource reads book records from a CSV file with a header row.
// The file is opened on every call so edits made while the server runs are
// picked up on the next turn.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) (*FileSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("catalog: file path must not be empty")
	}
	return &FileSource{path: path}, nil
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Books(ctx context.Context) ([]domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	books, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %q: %w", s.path, err)
	}
	return books, nil
}

// Parse decodes CSV inventory. A single malformed row rejects the whole input.
func Parse(r io.Reader) ([]domain.Book, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("catalog: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var books []domain.Book
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: read row: %w", err)
		}
		book, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("catalog: line %d: %w", line, err)
		}
		books = append(books, book)
	}
	return books, nil
}

type columns struct {
	name, price, quantity int
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{name: -1, price: -1, quantity: -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		switch key {
		case columnName:
			cols.name = i
		case columnNameAlt:
			if cols.name < 0 {
				cols.name = i
			}
		case columnPrice:
			cols.price = i
		case columnQuantity:
			cols.quantity = i
		}
	}
	switch {
	case cols.name < 0:
		return columns{}, fmt.Errorf("catalog: missing column %q", columnName)
	case cols.price < 0:
		return columns{}, fmt.Errorf("catalog: missing column %q", columnPrice)
	case cols.quantity < 0:
		return columns{}, fmt.Errorf("catalog: missing column %q", columnQuantity)
	}
	return cols, nil
}

func parseRecord(record []string, cols columns) (domain.Book, error) {
	name := strings.TrimSpace(record[cols.name])
	if name == "" {
		return domain.Book{}, errors.New("empty book name")
	}
	price, err := ParsePrice(record[cols.price])
	if err != nil {
		return domain.Book{}, err
	}
	quantity, err := ParseQuantity(record[cols.quantity])
	if err != nil {
		return domain.Book{}, err
	}
	return domain.Book{Name: name, Price: price, Quantity: quantity}, nil
}

// ParsePrice validates a non-negative decimal amount and returns it without a
// currency sign, keeping the original digits.
func ParsePrice(raw string) (string, error) {
	price := strings.TrimPrefix(strings.TrimSpace(raw), "$")
	v, err := strconv.ParseFloat(price, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("invalid price %q", raw)
	}
	if v < 0 {
		return "", fmt.Errorf("negative price %q", raw)
	}
	return price, nil
}

// ParseQuantity validates a non-negative integer stock count.
func ParseQuantity(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative quantity %q", raw)
	}
	return n, nil
}
