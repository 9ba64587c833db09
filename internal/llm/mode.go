package llm

import (
	"strings"
	"unicode"
)

// Mode selects the formatting instructions sent to the model.
type Mode int

const (
	// Plain is cleanup only: punctuation, paragraphs and simple lists.
	Plain Mode = iota
	// Structured additionally allows markdown headings.
	Structured
)

func (m Mode) String() string {
	if m == Structured {
		return "structured"
	}
	return "plain"
}

// TriggerPhrase switches a dictation to Structured mode when spoken at the
// start or the end of it.
const TriggerPhrase = "markdown mode"

// triggerWindow is how many words at each end of a transcript are searched.
const triggerWindow = 5

type token struct {
	start, end int // byte offsets into the transcript
	word       string
}

func tokenize(s string) []token {
	var toks []token
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, token{start: start, end: i, word: s[start:i]})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{start: start, end: len(s), word: s[start:]})
	}
	return toks
}

// normalizeWord lowercases w and trims surrounding punctuation so that
// "Mode," matches "mode" while "modes" does not.
func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
}

// findTrigger returns the token index where the phrase starts, or -1. Only
// matches lying completely within the first or last triggerWindow words count.
func findTrigger(toks []token, phrase []string) int {
	n, p := len(toks), len(phrase)
	if p == 0 || n < p {
		return -1
	}

	matchAt := func(i int) bool {
		for j, w := range phrase {
			if normalizeWord(toks[i+j].word) != w {
				return false
			}
		}
		return true
	}

	for i := 0; i+p <= n && i+p <= triggerWindow; i++ {
		if matchAt(i) {
			return i
		}
	}
	for i := max(0, n-triggerWindow); i+p <= n; i++ {
		if matchAt(i) {
			return i
		}
	}
	return -1
}

const (
	orphanPunct = ",.;:!?-"
	separators  = " \t\r\n,;:-"
)

// DetectMode looks for the trigger phrase at either end of transcript. When
// found it returns the transcript with the phrase and any punctuation left
// dangling by its removal stripped, and Structured. ok is false when nothing
// is left after stripping.
func DetectMode(transcript string) (text string, mode Mode, ok bool) {
	toks := tokenize(transcript)
	phrase := strings.Fields(TriggerPhrase)
	idx := findTrigger(toks, phrase)
	if idx < 0 {
		return transcript, Plain, true
	}

	start := toks[idx].start
	end := toks[idx+len(phrase)-1].end

	// Swallow what followed the phrase up to the next word.
	for end < len(transcript) {
		c := transcript[end]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || strings.IndexByte(orphanPunct, c) >= 0 {
			end++
			continue
		}
		break
	}

	prefix := transcript[:start]
	suffix := transcript[end:]
	if strings.TrimSpace(suffix) == "" {
		// The phrase closed the dictation; drop separators that introduced it
		// but keep the sentence end of what came before.
		prefix = strings.TrimRight(prefix, separators)
	} else if p := strings.TrimRight(prefix, separators); p != "" {
		// A comma or dash that led into the phrase now leads nowhere.
		prefix = p + " "
	}

	text = strings.TrimSpace(prefix + suffix)
	if text == "" {
		return transcript, Structured, false
	}
	return text, Structured, true
}
