package ussd

import (
	"fmt"
	"strings"

	"ussd-gateway/internal/menu"
)

// Reply is the engine's protocol-level outcome: the rendered text and
// whether the session terminates (RELEASE) or stays open (CONTINUE).
// Wire framing belongs to the gateway adapter.
type Reply struct {
	Text string
	End  bool
}

// Renderer shapes prompts into protocol replies, enforcing the
// carrier display limit. Texts past the limit are truncated with an
// ellipsis marker, never silently dropped.
type Renderer struct {
	MaxLen int
}

const ellipsis = "..."

func (r Renderer) Continue(text string) Reply {
	return Reply{Text: r.truncate(text), End: false}
}

func (r Renderer) Release(text string) Reply {
	return Reply{Text: r.truncate(text), End: true}
}

func (r Renderer) truncate(text string) string {
	if r.MaxLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= r.MaxLen {
		return text
	}
	cut := r.MaxLen - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + ellipsis
}

// RenderNode produces the screen text for a node: the interpolated
// prompt line followed by the option rows.
func RenderNode(n menu.Node, answers map[string]string) string {
	var lines []string
	if p := strings.TrimSpace(n.Prompt); p != "" {
		lines = append(lines, menu.Interpolate(p, answers))
	}
	for _, opt := range n.Options {
		lines = append(lines, fmt.Sprintf("%s. %s", opt.Selector, opt.Label))
	}
	return strings.Join(lines, "\n")
}
