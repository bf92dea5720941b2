package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"default": func(defaultVal any, val any) any {
		if val == nil || val == "" {
			return defaultVal
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join": func(sep string, items []string) string {
		return strings.Join(items, sep)
	},
	"bullets": func(items []string) string {
		var b strings.Builder
		for _, item := range items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		return strings.TrimRight(b.String(), "\n")
	},
}

// RenderTemplate renders a prompt template with text/template semantics.
// Prompts are plain text so no HTML escaping is applied.
func RenderTemplate(text string, data any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// MustRenderTemplate is RenderTemplate for static, known-good templates.
func MustRenderTemplate(text string, data any) string {
	out, err := RenderTemplate(text, data)
	if err != nil {
		panic(fmt.Sprintf("render template: %v", err))
	}
	return out
}
