package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/stockrag/pkg/common"
	"github.com/OFFIS-RIT/stockrag/pkg/loader"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultEncoder   = "o200k_base"
	DefaultMaxTokens = 500
)

var tableDelimRe = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)

// GetUnits loads the text of file and splits it into token-bounded units.
func GetUnits(ctx context.Context, file loader.GraphFile, encoder string) ([]common.Unit, error) {
	raw, err := file.GetText(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file.DisplayName(), err)
	}
	maxTokens := file.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return TransformIntoUnits(string(raw), file.ID, encoder, maxTokens)
}

// TransformIntoUnits splits text into sentences and packs consecutive
// sentences into units of at most maxTokens tokens. A sentence longer than
// maxTokens becomes a unit of its own.
func TransformIntoUnits(text, documentID, encoder string, maxTokens int) ([]common.Unit, error) {
	if encoder == "" {
		encoder = DefaultEncoder
	}
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, fmt.Errorf("get encoding %s: %w", encoder, err)
	}

	sentences := splitIntoSentences(strings.TrimSpace(text))
	units := make([]common.Unit, 0)

	start, tokens := -1, 0
	flush := func(end int) error {
		if start < 0 || end <= start {
			return nil
		}
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		units = append(units, common.Unit{
			ID:         id,
			DocumentID: documentID,
			Start:      start,
			End:        end,
			Text:       strings.Join(sentences[start:end], " "),
		})
		start, tokens = -1, 0
		return nil
	}

	for i, sentence := range sentences {
		n := len(enc.Encode(sentence, nil, nil))
		if start >= 0 && tokens+1+n > maxTokens {
			if err := flush(i); err != nil {
				return nil, err
			}
		}
		if start < 0 {
			start, tokens = i, n
			continue
		}
		tokens += 1 + n
	}
	if err := flush(len(sentences)); err != nil {
		return nil, err
	}
	return units, nil
}

func isTableRow(line string) bool {
	return strings.Contains(line, "|")
}

// splitIntoSentences splits text into sentences. Paragraph breaks end a
// sentence. Markdown tables are kept whole, and stray table rows become
// sentences of their own.
func splitIntoSentences(text string) []string {
	lines := strings.Split(text, "\n")

	var sentences []string
	var current strings.Builder
	emit := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])

		if isTableRow(trimmed) {
			emit()
			if i+1 < len(lines) && tableDelimRe.MatchString(lines[i+1]) {
				table := []string{lines[i]}
				for i+1 < len(lines) && isTableRow(strings.TrimSpace(lines[i+1])) {
					i++
					table = append(table, lines[i])
				}
				sentences = append(sentences, strings.TrimSpace(strings.Join(table, "\n")))
				continue
			}
			sentences = append(sentences, trimmed)
			continue
		}

		if trimmed == "" {
			emit()
			continue
		}

		for _, part := range splitLineIntoSentences(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(part)
			if endsSentence(part) {
				emit()
			}
		}
	}
	emit()

	return sentences
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, "\"')]}”")
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// splitLineIntoSentences splits one line at terminal punctuation. A period
// between digits ("2.500", "3.5") and a period after a list number ("1. ")
// do not end a sentence. Closing quotes and brackets stay with the sentence.
func splitLineIntoSentences(line string) []string {
	runes := []rune(line)

	var sentences []string
	var current strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		if r == '.' && i+1 < len(runes) {
			if unicode.IsDigit(runes[i+1]) && i > 0 && unicode.IsDigit(runes[i-1]) {
				continue
			}
			if runes[i+1] == ' ' && isListMarker(runes[:i]) {
				continue
			}
		}

		j := i + 1
		for j < len(runes) && strings.ContainsRune(".!?", runes[j]) {
			current.WriteRune(runes[j])
			j++
		}
		for j < len(runes) && strings.ContainsRune("\"')]}”", runes[j]) {
			current.WriteRune(runes[j])
			j++
		}

		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
		i = j - 1
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// isListMarker reports whether prefix ends in a standalone number of at most
// two digits, as in "2. Second item".
func isListMarker(prefix []rune) bool {
	n := 0
	for n < len(prefix) && unicode.IsDigit(prefix[len(prefix)-1-n]) {
		n++
	}
	if n == 0 || n > 2 {
		return false
	}
	return n == len(prefix) || unicode.IsSpace(prefix[len(prefix)-1-n])
}
