package ussd

import (
	"reflect"
	"testing"
)

func TestParseInput(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []string
	}{
		{name: "first dial", text: "", want: nil},
		{name: "whitespace only", text: "   ", want: nil},
		{name: "single token", text: "1", want: []string{"1"}},
		{name: "cumulative", text: "1*2*nairobi", want: []string{"1", "2", "nairobi"}},
		{name: "tokens are trimmed", text: " 1 * CBD ", want: []string{"1", "CBD"}},
		{name: "delimiter only keeps empty tokens", text: "*", want: []string{"", ""}},
		{name: "trailing delimiter", text: "1*", want: []string{"1", ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseInput(tc.text, "*")
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseInput(%q) = %#v, want %#v", tc.text, got, tc.want)
			}
		})
	}
}

func TestParseInput_CustomDelimiter(t *testing.T) {
	got := ParseInput("1#CBD#2", "#")
	want := []string{"1", "CBD", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}
