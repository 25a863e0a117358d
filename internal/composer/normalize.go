package composer

import (
	"fmt"
	"strings"

	"github.com/vidhikguru/nyaya-rag/internal/domain"
	"github.com/vidhikguru/nyaya-rag/internal/llm"
)

// escapes turns literal escape sequences some models emit into real
// whitespace.
var escapes = strings.NewReplacer(`\r\n`, "\n", `\n`, "\n", `\t`, "\t")

// Normalize resolves a generator response to plain answer text.
func Normalize(resp llm.Response) (string, error) {
	var text string

	switch r := resp.(type) {
	case llm.Text:
		text = string(r)
	case llm.Message:
		text = r.Content
	case llm.Completion:
		text = r.Text
	default:
		return "", fmt.Errorf("%w: unexpected response type %T", domain.ErrGenerationService, resp)
	}

	text = strings.TrimSpace(escapes.Replace(text))
	if text == "" {
		return "", fmt.Errorf("%w: empty answer", domain.ErrGenerationService)
	}
	return text, nil
}
