package ussd

import (
	"strings"
	"testing"
	"unicode/utf8"

	"ussd-gateway/internal/menu"
)

func TestRenderNode_MenuWithoutPrompt(t *testing.T) {
	n := menu.Node{
		Kind: menu.KindMenu,
		Options: []menu.Option{
			{Selector: "1", Label: "Book Ride"},
			{Selector: "2", Label: "Check Balance"},
			{Selector: "3", Label: "Ride Status"},
		},
	}
	got := RenderNode(n, nil)
	want := "1. Book Ride\n2. Check Balance\n3. Ride Status"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderNode_InterpolatesAnswers(t *testing.T) {
	n := menu.Node{
		Kind:   menu.KindMenu,
		Prompt: "Book {ride_type} ride from {pickup} to {dropoff}?",
		Options: []menu.Option{
			{Selector: "1", Label: "Confirm"},
			{Selector: "2", Label: "Cancel"},
		},
	}
	got := RenderNode(n, map[string]string{"ride_type": "Standard", "pickup": "CBD", "dropoff": "Westlands"})
	want := "Book Standard ride from CBD to Westlands?\n1. Confirm\n2. Cancel"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderer_TruncatesLongText(t *testing.T) {
	r := Renderer{MaxLen: 20}
	reply := r.Continue(strings.Repeat("a", 50))
	if utf8.RuneCountInString(reply.Text) != 20 {
		t.Fatalf("expected 20 runes, got %d (%q)", utf8.RuneCountInString(reply.Text), reply.Text)
	}
	if !strings.HasSuffix(reply.Text, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", reply.Text)
	}
}

func TestRenderer_TruncationIsRuneSafe(t *testing.T) {
	r := Renderer{MaxLen: 10}
	reply := r.Release(strings.Repeat("é", 30))
	if !utf8.ValidString(reply.Text) {
		t.Fatalf("truncation produced invalid utf8: %q", reply.Text)
	}
	if utf8.RuneCountInString(reply.Text) != 10 {
		t.Fatalf("expected 10 runes, got %d", utf8.RuneCountInString(reply.Text))
	}
}

func TestRenderer_ShortTextUntouched(t *testing.T) {
	r := Renderer{MaxLen: 160}
	if got := r.Continue("hello").Text; got != "hello" {
		t.Fatalf("got %q", got)
	}
	if r.Continue("x").End {
		t.Fatalf("Continue must not end the session")
	}
	if !r.Release("bye").End {
		t.Fatalf("Release must end the session")
	}
}

func TestRenderer_ZeroMaxLenDisablesTruncation(t *testing.T) {
	r := Renderer{}
	long := strings.Repeat("b", 500)
	if got := r.Continue(long).Text; got != long {
		t.Fatalf("expected text untouched")
	}
}
