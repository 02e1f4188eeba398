package usecase

import (
	"fmt"
	"strings"

	"bookstore-voice/internal/catalog"
	"bookstore-voice/internal/domain"
)

const (
	personaDirective = "You are a friendly and knowledgeable AI assistant for a bookstore. " +
		"Your job is to provide quick and helpful answers about book availability, pricing, and stock."
	styleDirective = "Respond in a natural, conversational manner. Keep your answer concise, engaging, and helpful. " +
		"Avoid repeating the user's question; just provide the relevant information clearly and warmly."
)

// buildPrompt renders the single instruction sent to the model: persona,
// inventory, the caller's words verbatim, then the style rules.
func buildPrompt(query string, books []domain.Book) string {
	return strings.Join([]string{
		personaDirective,
		"",
		"Here is the current book inventory:",
		catalog.Render(books),
		"",
		fmt.Sprintf("The user asked: \"%s\"", query),
		"",
		styleDirective,
	}, "\n")
}

func buildPromptMessages(query string, books []domain.Book) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleUser, Content: buildPrompt(query, books)},
	}
}

// truncateReply cuts s to at most max runes, backing up to the last space so
// the provider does not speak half a word. max <= 0 disables the cap.
func truncateReply(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	cut := string(r[:max])
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
