package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/bregydoc/gtranslate"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/pokerjest/animeAggregator/internal/config"
)

// Translator turns text from one language into another.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
	Name() string
}

// NewTranslator picks the backend named by cfg.Provider.
func NewTranslator(cfg config.TranslateConfig, completer Completer) Translator {
	if cfg.Provider == config.TranslateProviderGoogle {
		return &GoogleTranslator{From: cfg.SourceLang, To: cfg.TargetLang}
	}
	return &ModelTranslator{completer: completer, from: cfg.SourceLang, to: cfg.TargetLang}
}

// ModelTranslator asks the language model for the translation.
type ModelTranslator struct {
	completer Completer
	from, to  string
}

func (t *ModelTranslator) Name() string { return "llm" }

func (t *ModelTranslator) Translate(ctx context.Context, text string) (string, error) {
	system := fmt.Sprintf(`You are a translator specialised in anime. Translate the following description from %s to %s naturally and fluently.
Rules:
- Keep the original tone
- Do not translate character names, places or special techniques
- Keep Japanese honorifics such as -san, -kun, -chan
- Reply with the translation only`, languageName(t.from), languageName(t.to))

	out, err := t.completer.Complete(ctx, text, system)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// GoogleTranslator uses the public Google Translate endpoint.
type GoogleTranslator struct {
	From, To string
}

const translateChunkSize = 2000

func (t *GoogleTranslator) Name() string { return "google" }

var googleTranslate = gtranslate.TranslateWithParams

// Translate sends text in chunks of translateChunkSize runes.
func (t *GoogleTranslator) Translate(ctx context.Context, text string) (string, error) {
	var b strings.Builder
	for _, chunk := range chunkRunes(text, translateChunkSize) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		translated, err := googleTranslate(chunk, gtranslate.TranslationParams{
			From: t.From,
			To:   t.To,
		})
		if err != nil {
			return "", errors.Wrap(err, "translate chunk")
		}
		b.WriteString(translated)
	}
	return b.String(), nil
}

func chunkRunes(text string, size int) []string {
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := min(i+size, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
