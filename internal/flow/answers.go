package flow

import (
	"strings"
	"unicode"
)

// Answer is the guest's reply to a yes/no question.
type Answer int

const (
	Unclear Answer = iota
	Confirmed
	Declined
)

var (
	affirmatives = set("yes", "yeah", "yep", "yup", "sure", "ok", "okay", "confirm", "confirmed", "correct", "right", "absolutely", "please", "place")
	negatives    = set("no", "nope", "nah", "cancel", "stop", "negative", "don't", "dont", "not", "never")
	moreWords    = set("yes", "yeah", "yep", "sure", "more", "add", "another", "continue", "also")
	doneWords    = set("no", "nope", "nah", "nothing", "done", "that's", "thats", "finished", "negative")
)

// Confirmation classifies the reply to the order read-back. A negative word
// wins over an affirmative one ("yes, cancel it" declines).
func Confirmation(reply string) Answer {
	words := tokens(reply)
	for _, w := range words {
		if _, ok := negatives[w]; ok {
			return Declined
		}
	}
	for _, w := range words {
		if _, ok := affirmatives[w]; ok {
			return Confirmed
		}
	}
	return Unclear
}

// WantsMore reports whether the reply to "anything else?" asks for more items.
// Anything that is not clearly a request for more ends the ordering loop.
func WantsMore(reply string) bool {
	words := tokens(reply)
	for _, w := range words {
		if _, ok := doneWords[w]; ok {
			return false
		}
	}
	for _, w := range words {
		if _, ok := moreWords[w]; ok {
			return true
		}
	}
	return false
}

func tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
