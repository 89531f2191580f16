// Package extract pulls the reply string out of a text-generation response.
//
// Vendors and API versions disagree on where the text lives, so the body is
// offered to an ordered list of strategies. The first one that yields a
// non-empty string wins. When none match, a compacted dump of the whole
// response, bounded to upstream.FallbackLimit characters, is used instead:
// extraction never fails.
package extract

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

// Strategy is one known response shape.
type Strategy struct {
	Name    string
	Extract func(gjson.Result) (string, bool)
}

// Result reports which strategy produced the text.
type Result struct {
	Text     string
	Strategy string
	Fallback bool
}

const FallbackStrategy = "fallback"

// EmptyReply is spoken when the response body carries nothing at all.
const EmptyReply = "null"

// Default lists the known shapes in priority order.
var Default = []Strategy{
	Path("gemini.parts", "candidates.0.content.parts.0.text"),
	Path("palm.output", "candidates.0.output"),
	Path("palm.outputText", "candidates.0.outputText"),
	Path("candidate.content", "candidates.0.content"),
	Path("candidate.message.contentText", "candidates.0.message.contentText"),
	Path("candidate.message.content", "candidates.0.message.content"),
	Path("candidate.display", "candidates.0.display"),
	{Name: "output.content", Extract: outputContent},
	Path("result", "result"),
	Path("text", "text"),
	Path("message.content", "message.content"),
	Path("openai.choices", "choices.0.message.content"),
	Path("ollama.response", "response"),
}

// Path matches when the gjson path resolves to a non-blank string.
func Path(name, path string) Strategy {
	return Strategy{
		Name: name,
		Extract: func(root gjson.Result) (string, bool) {
			return nonBlank(root.Get(path))
		},
	}
}

func nonBlank(r gjson.Result) (string, bool) {
	if r.Type != gjson.String || strings.TrimSpace(r.Str) == "" {
		return "", false
	}
	return r.Str, true
}

// outputContent handles output[0] as a plain string, as {text}, or as
// {content: [...]} where blocks are strings, {text} or {raw}.
func outputContent(root gjson.Result) (string, bool) {
	first := root.Get("output.0")
	if !first.Exists() {
		return "", false
	}
	if s, ok := nonBlank(first); ok {
		return s, true
	}

	var found string
	first.Get("content").ForEach(func(_, block gjson.Result) bool {
		if s, ok := nonBlank(block); ok {
			found = s
			return false
		}
		if s, ok := nonBlank(block.Get("text")); ok {
			found = s
			return false
		}
		if s, ok := nonBlank(block.Get("raw")); ok {
			found = s
			return false
		}
		return true
	})
	if found != "" {
		return found, true
	}

	return nonBlank(first.Get("text"))
}

// Reply runs the Default chain over body.
func Reply(body []byte) Result {
	return Chain(body, Default)
}

// Chain runs strategies over body in order.
func Chain(body []byte, strategies []Strategy) Result {
	if !gjson.ValidBytes(body) {
		return fallback(string(body))
	}

	root := gjson.ParseBytes(body)
	if s, ok := nonBlank(root); ok {
		return Result{Text: s, Strategy: "string"}
	}

	for _, st := range strategies {
		if s, ok := st.Extract(root); ok {
			return Result{Text: s, Strategy: st.Name}
		}
	}

	compact := gjson.GetBytes(body, "@ugly").Raw
	if compact == "" {
		compact = string(body)
	}
	return fallback(compact)
}

func fallback(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		text = EmptyReply
	}
	return Result{Text: upstream.Truncate(text, upstream.FallbackLimit), Strategy: FallbackStrategy, Fallback: true}
}
