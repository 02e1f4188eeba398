package markup

import (
	"fmt"
	"net/http"

	"github.com/twilio/twilio-go/twiml"
)

const ContentType = "text/xml"

const (
	Greeting   = "Hello! I'm your book store assistant. You can ask me about available books or specific book prices. How can I help you today?"
	Reprompt   = "I didn't catch that. Could you please repeat your question?"
	FollowUp   = "Is there anything else you'd like to know?"
	ErrorSorry = "We're sorry, but there was an error. Please try again later."
)

// GatherAction is where the provider posts each transcribed utterance. Every
// gather points back at it, which is what keeps the call looping.
const GatherAction = "/handle-input"

func speechGather(lines ...string) *twiml.VoiceGather {
	inner := make([]twiml.Element, 0, len(lines))
	for _, l := range lines {
		inner = append(inner, &twiml.VoiceSay{Message: l})
	}
	return &twiml.VoiceGather{
		Input:         "speech",
		Action:        GatherAction,
		Method:        http.MethodPost,
		SpeechTimeout: "auto",
		Enhanced:      "true",
		InnerElements: inner,
	}
}

// Gather speaks lines in order inside a single speech gather.
func Gather(lines ...string) (string, error) {
	doc, err := twiml.Voice([]twiml.Element{speechGather(lines...)})
	if err != nil {
		return "", fmt.Errorf("markup: render gather: %w", err)
	}
	return doc, nil
}

// Say speaks text and ends the turn without reopening a gather.
func Say(text string) (string, error) {
	doc, err := twiml.Voice([]twiml.Element{&twiml.VoiceSay{Message: text}})
	if err != nil {
		return "", fmt.Errorf("markup: render say: %w", err)
	}
	return doc, nil
}

// Fallback is the terminal apology document. It is built without the twiml
// encoder so it stays available even if rendering is what failed.
const Fallback = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>We&#39;re sorry, but there was an error. Please try again later.</Say></Response>`

// Apology renders the terminal error document, falling back to the static
// copy.
func Apology() string {
	doc, err := Say(ErrorSorry)
	if err != nil {
		return Fallback
	}
	return doc
}
