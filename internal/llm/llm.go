// Package llm is the provider gateway. Variants implement Client; Gateway adds
// decoding, validation, retry and the shared rate-limit budget on top.
package llm

import "context"

// Schema constrains the JSON a provider must return.
type Schema struct {
	Name string
	JSON []byte
}

// Hints carry structured request context. Only the mock variant reads them.
type Hints struct {
	Topic       string
	Language    string
	SlideCount  int
	Style       string
	Section     string
	SlideTitles []string
}

type Request struct {
	System string
	Prompt string
	Schema Schema
	Hints  Hints
}

// Client returns the raw JSON text of an outline or section response.
type Client interface {
	GenerateOutline(ctx context.Context, req Request) (string, error)
}

// Validatable is implemented by response types that check their own shape
// after decoding.
type Validatable interface {
	Validate() error
}

// Schema names of the two structurer calls.
const (
	SchemaPlan    = "outline_plan"
	SchemaSection = "section_detail"
)
