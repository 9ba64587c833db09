package llm

import (
	"fmt"
	"strings"

	"github.com/leonardotrapani/hyprdictate/internal/glossary"
)

var plainTasks = []string{
	"Fix grammar and punctuation",
	"Remove stutters, repeated words and filler words (um, uh, like, you know)",
	"Split long passages into paragraphs",
	"Turn spoken enumerations into simple lists",
}

var structuredTasks = []string{
	"Organize the content into sections with markdown headings (#, ##)",
	"Use markdown bullet or numbered lists where the speaker enumerates items",
}

// SystemPrompt returns the fixed instruction for mode.
func SystemPrompt(mode Mode) string {
	var b strings.Builder
	b.WriteString("You are a text cleanup assistant. Your job is to clean up speech-to-text transcriptions.\n\n")
	b.WriteString("Tasks:\n")
	for _, task := range plainTasks {
		fmt.Fprintf(&b, "- %s\n", task)
	}
	if mode == Structured {
		for _, task := range structuredTasks {
			fmt.Fprintf(&b, "- %s\n", task)
		}
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Preserve the original meaning and intent\n")
	b.WriteString("- Keep the same language as the input\n")
	b.WriteString("- Do not add any new information\n")
	b.WriteString("- Do not remove meaningful content\n")
	if mode == Plain {
		b.WriteString("- Do not use headings, bold text or any other markup\n")
	}
	b.WriteString("- Output ONLY the cleaned text, nothing else\n")
	return b.String()
}

// GlossaryBlock lists every expansion in key order, or returns "" for an
// empty glossary.
func GlossaryBlock(g glossary.Map) string {
	if g.Len() == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Apply these abbreviation expansions:\n")
	for _, e := range g.Entries() {
		fmt.Fprintf(&b, "- %s = %s\n", e.Key, e.Value)
	}
	return b.String()
}

// BuildPrompt assembles the full prompt written to the model's stdin.
func BuildPrompt(mode Mode, transcript string, g glossary.Map) string {
	var b strings.Builder
	b.WriteString(SystemPrompt(mode))
	if block := GlossaryBlock(g); block != "" {
		b.WriteString("\n")
		b.WriteString(block)
	}
	b.WriteString("\nText to process:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nCleaned text:\n")
	return b.String()
}
