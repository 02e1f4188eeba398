package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"bookstore-voice/internal/catalog"
	"bookstore-voice/internal/domain"
)

const (
	attrName     = "name"
	attrPrice    = "price"
	attrQuantity = "quantity"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client reads the book inventory from a DynamoDB table.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func (c *Client) Name() string { return "dynamodb:" + c.tableName }

// Books scans the whole table, following pagination, and returns the rows in
// scan order. Any malformed item fails the scan.
func (c *Client) Books(ctx context.Context) ([]domain.Book, error) {
	var (
		books []domain.Book
		start map[string]types.AttributeValue
	)
	for {
		out, err := c.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(c.tableName),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: Books scan: %w", err)
		}
		for _, item := range out.Items {
			b, err := itemToBook(item)
			if err != nil {
				return nil, fmt.Errorf("repository: Books unmarshal: %w", err)
			}
			books = append(books, b)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return books, nil
		}
		start = out.LastEvaluatedKey
	}
}

// PutBook writes or replaces a single inventory row keyed by name.
func (c *Client) PutBook(ctx context.Context, b domain.Book) error {
	if strings.TrimSpace(b.Name) == "" {
		return errors.New("repository: PutBook: name is required")
	}
	price, err := catalog.ParsePrice(b.Price)
	if err != nil {
		return fmt.Errorf("repository: PutBook: %w", err)
	}
	if b.Quantity < 0 {
		return errors.New("repository: PutBook: quantity must not be negative")
	}
	b.Price = price

	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      bookItem(b),
	})
	if err != nil {
		return fmt.Errorf("repository: PutBook: %w", err)
	}
	return nil
}

func itemToBook(item map[string]types.AttributeValue) (domain.Book, error) {
	name, err := strAttr(item, attrName)
	if err != nil {
		return domain.Book{}, err
	}
	rawPrice, err := numberOrStringAttr(item, attrPrice)
	if err != nil {
		return domain.Book{}, err
	}
	price, err := catalog.ParsePrice(rawPrice)
	if err != nil {
		return domain.Book{}, fmt.Errorf("repository: item %q: %w", name, err)
	}
	rawQty, err := numberOrStringAttr(item, attrQuantity)
	if err != nil {
		return domain.Book{}, err
	}
	qty, err := catalog.ParseQuantity(rawQty)
	if err != nil {
		return domain.Book{}, fmt.Errorf("repository: item %q: %w", name, err)
	}
	return domain.Book{Name: strings.TrimSpace(name), Price: price, Quantity: qty}, nil
}

func bookItem(b domain.Book) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrName:     &types.AttributeValueMemberS{Value: b.Name},
		attrPrice:    &types.AttributeValueMemberN{Value: b.Price},
		attrQuantity: &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", b.Quantity)},
	}
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

// numberOrStringAttr accepts N or S so hand-edited tables with string
// prices still load.
func numberOrStringAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	switch tv := v.(type) {
	case *types.AttributeValueMemberN:
		return tv.Value, nil
	case *types.AttributeValueMemberS:
		return tv.Value, nil
	default:
		return "", fmt.Errorf("repository: attribute %q is not a number", key)
	}
}
