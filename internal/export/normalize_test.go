package export_test

import (
	"strings"
	"testing"

	"github.com/catchingknives/teams-webapp-exporter/internal/export"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text passes through",
			in:   "hello world",
			want: "hello world",
		},
		{
			name: "line breaks become newlines",
			in:   "one<br>two<br/>three<br />four",
			want: "one\ntwo\nthree\nfour",
		},
		{
			name: "paragraph close becomes newline",
			in:   "<p>first</p><p>second</p>",
			want: "first\nsecond",
		},
		{
			name: "bold and strong",
			in:   `<b>hi</b> and <strong class="x">there</strong>`,
			want: "**hi** and **there**",
		},
		{
			name: "italic and em",
			in:   "<i>a</i> <em>b</em>",
			want: "_a_ _b_",
		},
		{
			name: "inline code",
			in:   `run <code>go vet</code> first`,
			want: "run `go vet` first",
		},
		{
			name: "hyperlink",
			in:   `see <a href="https://example.com/doc" rel="noopener">the doc</a>`,
			want: "see [the doc](https://example.com/doc)",
		},
		{
			name: "blockquote prefixes each line",
			in:   "<blockquote>first line<br>second line</blockquote>after",
			want: "> first line\n> second line\nafter",
		},
		{
			name: "unknown markup is discarded",
			in:   `<span data-tid="x"><ruler/>text</span>`,
			want: "text",
		},
		{
			name: "entities are decoded",
			in:   "a &amp; b &lt;c&gt; &quot;d&quot; &#39;e&#39;&nbsp;f",
			want: `a & b <c> "d" 'e' f`,
		},
		{
			name: "ampersand decoded only once",
			in:   "&amp;lt;",
			want: "&lt;",
		},
		{
			name: "three blank lines collapse to one",
			in:   "top<br><br><br><br>bottom",
			want: "top\n\nbottom",
		},
		{
			name: "single blank line is kept",
			in:   "top<br><br>bottom",
			want: "top\n\nbottom",
		},
		{
			name: "leading and trailing whitespace trimmed",
			in:   "  <br> padded <br>  ",
			want: "padded",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := export.Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_NeverPanicsOnGarbage(t *testing.T) {
	inputs := []string{
		"<b>unclosed",
		"<<<>>>",
		"<a href=>broken</a>",
		strings.Repeat("<div>", 1000),
		"<blockquote></blockquote>",
	}
	for _, in := range inputs {
		// Degrades to plain text, never errors.
		_ = export.Normalize(in)
	}
}
