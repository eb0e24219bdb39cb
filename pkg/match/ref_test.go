package match

import (
	"testing"

	"github.com/crystal-mush/objsearch/pkg/objdb"
)

func TestParseRef(t *testing.T) {
	tests := []struct {
		token string
		sigil string
		want  objdb.DBRef
		ok    bool
	}{
		{"#0", "#", 0, true},
		{"#42", "#", 42, true},
		{"#007", "#", 7, true},
		{"42", "#", objdb.Nothing, false},
		{"#", "#", objdb.Nothing, false},
		{"#-1", "#", objdb.Nothing, false},
		{"#+1", "#", objdb.Nothing, false},
		{"#12x", "#", objdb.Nothing, false},
		{"# 12", "#", objdb.Nothing, false},
		{"#12 ", "#", objdb.Nothing, false},
		{"##12", "#", objdb.Nothing, false},
		{"", "#", objdb.Nothing, false},
		// Empty sigil falls back to the default.
		{"#9", "", 9, true},
		// Custom sigils, including multi-rune ones.
		{"@17", "@", 17, true},
		{"#17", "@", objdb.Nothing, false},
		{"ref:3", "ref:", 3, true},
	}
	for _, tt := range tests {
		got, ok := ParseRef(tt.token, tt.sigil)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRef(%q, %q) = %v, %v; want %v, %v",
				tt.token, tt.sigil, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRefOverflow(t *testing.T) {
	if _, ok := ParseRef("#99999999999999999999999999", "#"); ok {
		t.Error("ParseRef accepted an out-of-range number")
	}
}
