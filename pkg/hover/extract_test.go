package hover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualify(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		min    int
		want   string
		wantOK bool
	}{
		{name: "exactly five", input: "hello", min: 5, want: "hello", wantOK: true},
		{name: "four chars", input: "hell", min: 5, want: "hell", wantOK: false},
		{name: "padding does not count", input: "   abcd   ", min: 5, want: "abcd", wantOK: false},
		{name: "multibyte counted as characters", input: "héllo", min: 5, want: "héllo", wantOK: true},
		{name: "emoji", input: "🙂🙂🙂🙂🙂", min: 5, want: "🙂🙂🙂🙂🙂", wantOK: true},
		{name: "zero min uses default", input: "abcd", min: 0, want: "abcd", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Qualify(tt.input, tt.min)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     string
	}{
		{
			name:     "plain spans",
			fragment: `<span>hello</span> <span>world</span>`,
			want:     "hello world",
		},
		{
			name:     "emoji images keep alt text",
			fragment: `<span>ship it </span><img alt="🚀" src="x.svg"><span> now</span>`,
			want:     "ship it 🚀 now",
		},
		{
			name:     "line breaks",
			fragment: `first line<br>second   line`,
			want:     "first line\nsecond line",
		},
		{
			name:     "hidden and script content skipped",
			fragment: `<span aria-hidden="true">·</span>visible<script>alert(1)</script><span hidden>secret</span>`,
			want:     "visible",
		},
		{
			name:     "links keep their text",
			fragment: `see <a href="/x">@someone</a> and <a href="/h">#tag</a>`,
			want:     "see @someone and #tag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(tt.fragment)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
