package domain

// Book is one inventory row. Price keeps the exact decimal text from the
// source so it is spoken back the way the store wrote it.
type Book struct {
	Name     string
	Price    string
	Quantity int
}

// Turn is a single caller utterance as delivered by the voice provider.
// Call identifiers are carried for logging only.
type Turn struct {
	SpeechResult string
	CallSID      string
	AccountSID   string
	From         string
	To           string
	CallStatus   string
}
