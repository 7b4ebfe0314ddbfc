package menu

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the closed set of node variants in the conversation tree.
//
// The engine switches exhaustively on Kind; adding a variant requires
// touching the engine's arrive path.
type Kind string

const (
	KindMenu     Kind = "menu"
	KindInput    Kind = "input"
	KindAction   Kind = "action"
	KindTerminal Kind = "terminal"
)

// Option is one selectable row on a menu node.
type Option struct {
	// Selector is the keystroke token the subscriber sends ("1", "2", ...).
	Selector string `json:"selector"`
	Label    string `json:"label"`
	Target   string `json:"target"`
}

// InputRule constrains free-form input on an input node.
// A zero rule accepts any non-empty token.
type InputRule struct {
	Numeric bool   `json:"numeric,omitempty"`
	MinLen  int    `json:"min_len,omitempty"`
	MaxLen  int    `json:"max_len,omitempty"`
	Pattern string `json:"pattern,omitempty"`

	compiled *regexp.Regexp
}

// Node is one screen/step of the conversation.
//
// Per-kind fields:
// - menu: Options (>= 1)
// - input: Rule, Target
// - action: ActionKey, OnSuccess, OnFailure
// - terminal: Prompt only
//
// AnswerKey, when set on a menu or input node, records the accepted
// value into the session answer history under that name. Prompts may
// reference recorded answers as {name} placeholders.
type Node struct {
	Key    string `json:"key"`
	Kind   Kind   `json:"kind"`
	Prompt string `json:"prompt,omitempty"`

	Options []Option `json:"options,omitempty"`

	Rule   InputRule `json:"rule,omitempty"`
	Target string    `json:"target,omitempty"`

	ActionKey string `json:"action,omitempty"`
	OnSuccess string `json:"on_success,omitempty"`
	OnFailure string `json:"on_failure,omitempty"`

	AnswerKey string `json:"answer_key,omitempty"`

	// AllowBack opts this node into the reserved back selector.
	AllowBack bool `json:"allow_back,omitempty"`
}

// Validate checks one raw keystroke token against this node.
//
// For menu nodes it returns the matched option. For input nodes it
// returns a synthetic option whose Target is the node's input target
// and whose Label is the token itself. Invalid tokens yield ok=false;
// validation never errors.
func (n Node) Validate(token string) (Option, bool) {
	switch n.Kind {
	case KindMenu:
		for _, opt := range n.Options {
			if opt.Selector == token {
				return opt, true
			}
		}
		return Option{}, false
	case KindInput:
		if !n.Rule.accepts(token) {
			return Option{}, false
		}
		return Option{Selector: token, Label: token, Target: n.Target}, true
	default:
		// Action and terminal nodes consume no input.
		return Option{}, false
	}
}

func (r *InputRule) accepts(token string) bool {
	if token == "" {
		return false
	}
	if r.Numeric {
		for _, c := range token {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	if r.MinLen > 0 && len(token) < r.MinLen {
		return false
	}
	if r.MaxLen > 0 && len(token) > r.MaxLen {
		return false
	}
	if r.Pattern != "" {
		if r.compiled == nil {
			// Compiled during tree validation; compile lazily as a fallback.
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return false
			}
			r.compiled = re
		}
		if !r.compiled.MatchString(token) {
			return false
		}
	}
	return true
}

func (r *InputRule) compile() error {
	if r.Pattern == "" {
		return nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
	}
	r.compiled = re
	return nil
}

// Interpolate replaces {name} placeholders in the prompt with recorded
// answers. Unknown placeholders are left as-is so configuration slips
// surface visibly in QA rather than rendering empty screens.
func Interpolate(prompt string, answers map[string]string) string {
	if len(answers) == 0 || !strings.Contains(prompt, "{") {
		return prompt
	}
	out := prompt
	for k, v := range answers {
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
