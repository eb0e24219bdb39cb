package match

import (
	"reflect"
	"testing"
)

func TestPartialMatch(t *testing.T) {
	labels := []string{
		"sword",                // 0
		"Sharp Sword of Doom",  // 1
		"shield",               // 2
		"big red button",       // 3
		"red big button",       // 4
	}

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"single word prefix", "sw", []int{0, 1}},
		{"case-insensitive", "SWO", []int{0, 1}},
		{"whole word", "sword", []int{0, 1}},
		{"two words in order", "sharp sw", []int{1}},
		{"words out of order", "sw sh", nil},
		{"skip label words", "sharp doom", []int{1}},
		{"each label word used once", "sword sword", nil},
		{"mid-label word", "doom", []int{1}},
		{"order matters both ways", "big red", []int{3}},
		{"order matters both ways reversed", "red big", []int{4}},
		{"no match", "axe", nil},
		{"empty query", "", nil},
		{"whitespace query", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PartialMatch(tt.query, labels)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PartialMatch(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}

	if got := PartialMatch("sword", nil); got != nil {
		t.Errorf("PartialMatch with no labels = %v, want nil", got)
	}
}

// The scan may skip label words but never move left, and each label
// word binds at most one query word.
func TestPartialMatchConsumption(t *testing.T) {
	// "red button" skips over "big".
	got := PartialMatch("red button", []string{"red big button"})
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("PartialMatch(red button) = %v, want [0]", got)
	}
	// Both "b" words bind, to different label words.
	got = PartialMatch("b b", []string{"big red button", "button"})
	if !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("PartialMatch(b b) = %v, want [0]", got)
	}
	// "button big" cannot match: after "button" binds, the scan is past
	// "big".
	got = PartialMatch("button big", []string{"red big button"})
	if got != nil {
		t.Errorf("PartialMatch(button big) = %v, want nil", got)
	}
}
