package markdown

import (
	"strings"
	"testing"
)

func TestPrepare(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "double asterisks become single",
			in:   "**bold** and _italic_",
			want: "*bold* and _italic_",
		},
		{
			name: "balanced markers untouched",
			in:   "*bold* `code` _italic_",
			want: "*bold* `code` _italic_",
		},
		{
			name: "unpaired asterisk stripped",
			in:   "3 * 4 = 12",
			want: "3  4 = 12",
		},
		{
			name: "unpaired underscore stripped",
			in:   "snake_case word",
			want: "snakecase word",
		},
		{
			name: "code fence preserved",
			in:   "look:\n```go\nx := a * b\n```\ndone",
			want: "look:\n```go\nx := a * b\n```\ndone",
		},
		{
			name: "unterminated fence closed",
			in:   "```python\nprint(1)",
			want: "```python\nprint(1)\n```",
		},
		{
			name: "markers inside fences untouched",
			in:   "```\na_b * c_d *\n```",
			want: "```\na_b * c_d *\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Prepare(tt.in); got != tt.want {
				t.Errorf("Prepare(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscape(t *testing.T) {
	got := Escape("a_b*c[d]e.f!")
	want := `a\_b\*c\[d\]e\.f\!`
	if got != want {
		t.Errorf("Escape = %q, want %q", got, want)
	}
}

func TestPrepareLargeInput(t *testing.T) {
	in := strings.Repeat("*bold* _italic_ `code` ", 1000)
	out := Prepare(in)
	if strings.Count(out, "*")%2 != 0 {
		t.Error("output has unbalanced asterisks")
	}
}
