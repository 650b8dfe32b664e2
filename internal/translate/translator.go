// Package translate is the machine-translation capability. Translation is
// delegated to a chat model behind the LLM gateway.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikhilbhutani/mediadesk/internal/llm"
	"github.com/nikhilbhutani/mediadesk/internal/prompt"
)

// Auto means "let the engine work it out" for a source language.
const Auto = "auto"

type Translator interface {
	// TranslateText translates text into target. An empty or Auto source
	// leaves language detection to the engine.
	TranslateText(ctx context.Context, text, source, target string) (string, error)
}

var languageNames = map[string]string{
	"ar": "Arabic", "de": "German", "en": "English", "es": "Spanish",
	"fr": "French", "hi": "Hindi", "it": "Italian", "ja": "Japanese",
	"ko": "Korean", "nl": "Dutch", "pl": "Polish", "pt": "Portuguese",
	"ru": "Russian", "tr": "Turkish", "uk": "Ukrainian", "zh": "Chinese",
	"zh-cn": "Simplified Chinese", "zh-tw": "Traditional Chinese",
}

// LanguageName returns a human-readable name for an ISO 639-1 code, or the
// code itself when it is not known.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

type LLMTranslator struct {
	gw    llm.Gateway
	model string
}

func NewLLMTranslator(gw llm.Gateway, model string) *LLMTranslator {
	return &LLMTranslator{gw: gw, model: model}
}

func (t *LLMTranslator) TranslateText(ctx context.Context, text, source, target string) (string, error) {
	sys, err := systemPrompt(source, target)
	if err != nil {
		return "", err
	}

	resp, err := t.gw.Chat(ctx, llm.ChatRequest{
		Model: t.model,
		Messages: []llm.Message{
			{Role: "system", Content: sys},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate to %s: %w", target, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func systemPrompt(source, target string) (string, error) {
	vars := map[string]string{"target": LanguageName(target)}
	tmpl := prompt.TranslateAuto
	if source != "" && source != Auto {
		vars["source"] = LanguageName(source)
		tmpl = prompt.TranslateFrom
	}
	return prompt.Render(tmpl, vars)
}
