// Package prompt holds the instruction templates sent to chat models and a
// small {{variable}} renderer for them.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Translation templates. TranslateFrom is used when the source language is
// known; TranslateAuto leaves detection to the model.
const (
	TranslateAuto = "You are a translation engine. Translate the user's message into {{target}}. " +
		"Reply with the translation only. Do not add notes, quotes or explanations."
	TranslateFrom = "You are a translation engine. Translate the user's message into {{target}}. " +
		"The message is written in {{source}}. " +
		"Reply with the translation only. Do not add notes, quotes or explanations."
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render replaces {{variable}} placeholders in tmpl with values from vars.
// Every placeholder must have a value.
func Render(tmpl string, vars map[string]string) (string, error) {
	if missing := missingVars(tmpl, vars); len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	return variablePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		return vars[match[2:len(match)-2]]
	}), nil
}

// Variables returns the distinct placeholder names in tmpl, in order of first
// appearance.
func Variables(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range variablePattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			names = append(names, m[1])
			seen[m[1]] = true
		}
	}
	return names
}

func missingVars(tmpl string, vars map[string]string) []string {
	var missing []string
	for _, v := range Variables(tmpl) {
		if _, ok := vars[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
