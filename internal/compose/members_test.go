package compose

import (
	"errors"
	"reflect"
	"testing"

	"github.com/solatis/fieldcomp/internal/types"
)

func TestParseMembers(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    []Segment
		wantErr error
	}{
		{
			name: "two fields",
			expr: "LAST.FIRST",
			want: []Segment{FieldRef("LAST"), FieldRef("FIRST")},
		},
		{
			name: "single quoted literal",
			expr: "FIELD1.'-'.FIELD2",
			want: []Segment{FieldRef("FIELD1"), Literal("-"), FieldRef("FIELD2")},
		},
		{
			name: "double quoted literal with dot and comma",
			expr: `A.". ,".B`,
			want: []Segment{FieldRef("A"), Literal(". ,"), FieldRef("B")},
		},
		{
			name: "whitespace around members ignored",
			expr: " A . ' ' . B ",
			want: []Segment{FieldRef("A"), Literal(" "), FieldRef("B")},
		},
		{
			name: "pattern member",
			expr: "PART_*",
			want: []Segment{{Kind: SegmentField, Text: "PART_*", Pattern: true}},
		},
		{
			name: "leading literal",
			expr: "'id:'.ID",
			want: []Segment{Literal("id:"), FieldRef("ID")},
		},
		{
			name:    "empty member",
			expr:    "A..B",
			wantErr: types.ErrEmptySegment,
		},
		{
			name:    "empty expression",
			expr:    "",
			wantErr: types.ErrEmptySegment,
		},
		{
			name:    "unterminated literal",
			expr:    "A.'-.B",
			wantErr: types.ErrUnterminatedLiteral,
		},
		{
			name:    "text after literal",
			expr:    "A.'-'x.B",
			wantErr: types.ErrMalformedLiteral,
		},
		{
			name:    "text before literal",
			expr:    "A.x'-'.B",
			wantErr: types.ErrMalformedLiteral,
		},
		{
			name:    "two adjacent literals",
			expr:    "A.'-''+'.B",
			wantErr: types.ErrMalformedLiteral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMembers(tt.expr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseMembers(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMembers(%q) unexpected error = %v", tt.expr, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMembers(%q) = %+v, want %+v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got, err := SplitList("A.B,C.','.D, E", ',')
	if err != nil {
		t.Fatalf("SplitList() error = %v", err)
	}
	want := []string{"A.B", "C.','.D", " E"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitList() = %q, want %q", got, want)
	}

	if _, err := SplitList("A,'B", ','); !errors.Is(err, types.ErrUnterminatedLiteral) {
		t.Errorf("SplitList() error = %v, want ErrUnterminatedLiteral", err)
	}
}

func TestUnquote(t *testing.T) {
	tests := map[string]string{
		"' '":   " ",
		`","`:   ",",
		"plain": "plain",
		"'x":    "'x",
		"''":    "",
	}
	for in, want := range tests {
		if got := Unquote(in); got != want {
			t.Errorf("Unquote(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSegment_StringRoundTrip(t *testing.T) {
	expr := `LAST.', '.FIRST."it's".NAME_*`
	segments, err := ParseMembers(expr)
	if err != nil {
		t.Fatalf("ParseMembers() error = %v", err)
	}
	def := &Definition{Segments: segments}
	again, err := ParseMembers(def.Members())
	if err != nil {
		t.Fatalf("ParseMembers(Members()) error = %v", err)
	}
	if !reflect.DeepEqual(segments, again) {
		t.Errorf("round trip = %+v, want %+v", again, segments)
	}
}
