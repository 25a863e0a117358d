// Package llm talks to text generation models.
package llm

import "context"

// Response is the raw output of a Generator. It is one of Text, Message or
// Completion; the set is closed.
type Response interface {
	isResponse()
}

// Text is a bare string answer.
type Text string

// Message is a chat completion message.
type Message struct {
	Role    string
	Content string
}

// Completion is the accumulated output of a streamed generate call.
type Completion struct {
	Text string
}

func (Text) isResponse()       {}
func (Message) isResponse()    {}
func (Completion) isResponse() {}

// Generator produces an answer for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Response, error)
	Name() string
}
