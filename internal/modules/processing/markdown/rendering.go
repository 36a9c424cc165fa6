package markdown

import (
	"bytes"
	_ "embed"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

//go:embed assets/narrative.css
var narrativeStyle string

// Raw HTML in model output is not rendered; goldmark omits it unless WithUnsafe is set.
var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Table,
		extension.Strikethrough,
		extension.Linkify,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

var (
	thinkBlockRegex = regexp.MustCompile(`(?is)<think>.*?</think>`)
	// An unterminated block means the model was cut off while reasoning.
	openThinkRegex = regexp.MustCompile(`(?is)<think>.*$`)
	sentinelQuotes = "'\"` \n\t."
)

// Narrative is a rendered free-text report.
type Narrative struct {
	Raw  string        `json:"raw"`
	HTML template.HTML `json:"html"`
	// Mismatch is set when the model answered that the upload is not reviews.
	Mismatch bool `json:"mismatch"`
}

// StripReasoning drops <think> blocks that reasoning models prepend to answers.
func StripReasoning(text string) string {
	text = thinkBlockRegex.ReplaceAllString(text, "")
	text = openThinkRegex.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// RenderMarkdownContent converts markdown to an HTML fragment.
func RenderMarkdownContent(markdownText string) string {
	text := strings.TrimSpace(markdownText)
	if text == "" {
		return ""
	}
	var out bytes.Buffer
	if err := markdownEngine.Convert([]byte(text), &out); err != nil {
		return "<p>" + template.HTMLEscapeString(text) + "</p>"
	}
	return out.String()
}

// RenderNarrative cleans a model reply and renders it for the report pages.
// sentinel is the fixed answer the prompt asks for on unrelated uploads.
func RenderNarrative(reply, sentinel string) Narrative {
	text := StripReasoning(reply)
	n := Narrative{Raw: text}
	if sentinel != "" && strings.EqualFold(strings.Trim(text, sentinelQuotes), sentinel) {
		n.Mismatch = true
	}
	n.HTML = template.HTML(RenderMarkdownContent(text))
	return n
}

// Style returns the stylesheet for rendered narratives.
func Style() template.CSS {
	return template.CSS(narrativeStyle)
}
