package catalog

import (
	"fmt"
	"strings"

	"bookstore-voice/internal/domain"
)

// Render flattens the inventory into one "<name> - $<price>, <n> in stock"
// line per book, in input order.
func Render(books []domain.Book) string {
	lines := make([]string, 0, len(books))
	for _, b := range books {
		lines = append(lines, fmt.Sprintf("%s - $%s, %d in stock", b.Name, b.Price, b.Quantity))
	}
	return strings.Join(lines, "\n")
}
