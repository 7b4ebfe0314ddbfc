package ussd

import "strings"

// ParseInput decodes the cumulative USSD input string into the
// ordered sequence of keystroke tokens.
//
// The parse is total and side-effect-free: empty input (first dial)
// yields nil; delimiter-only input yields empty tokens, which fail
// validation downstream like any other bad selection. Malformed input
// never fails parsing — correctness decisions belong to the engine.
func ParseInput(text, delimiter string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, delimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
