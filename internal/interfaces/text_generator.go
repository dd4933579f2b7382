package interfaces

import "context"

// TextGenerator is an opaque text-in/text-out LLM collaborator
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
	Name() string
}
