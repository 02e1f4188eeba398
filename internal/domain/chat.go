package domain

const RoleUser = "user"

// ChatMessage is the provider-agnostic role-tagged message sent to the
// inference endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
