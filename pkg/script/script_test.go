package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected []Directive
	}{
		{
			name:     "empty script",
			src:      "",
			expected: nil,
		},
		{
			name:     "blank lines only",
			src:      "\n\n   \n\t\n",
			expected: nil,
		},
		{
			name: "comments become comment directives",
			src:  "# stop the service\nsystemctl stop web\n  # indented comment\n",
			expected: []Directive{
				{Kind: KindComment, LineNo: 1},
				{Kind: KindEchoExec, Line: "systemctl stop web", LineNo: 2},
				{Kind: KindComment, LineNo: 3},
			},
		},
		{
			name: "at prefix silences a line",
			src:  "@chmod 755 /srv/web\nsystemctl start web\n",
			expected: []Directive{
				{Kind: KindSilentExec, Line: "chmod 755 /srv/web", LineNo: 1},
				{Kind: KindEchoExec, Line: "systemctl start web", LineNo: 2},
			},
		},
		{
			name: "indented at prefix",
			src:  "   @echo quiet",
			expected: []Directive{
				{Kind: KindSilentExec, Line: "echo quiet", LineNo: 1},
			},
		},
		{
			name: "only the first at is stripped",
			src:  "@@echo literal",
			expected: []Directive{
				{Kind: KindSilentExec, Line: "@echo literal", LineNo: 1},
			},
		},
		{
			name: "at followed by space keeps the space",
			src:  "@ echo spaced",
			expected: []Directive{
				{Kind: KindSilentExec, Line: " echo spaced", LineNo: 1},
			},
		},
		{
			name: "hash inside a line is not a comment",
			src:  "echo '# not a comment'",
			expected: []Directive{
				{Kind: KindEchoExec, Line: "echo '# not a comment'", LineNo: 1},
			},
		},
		{
			name: "line numbers count blank lines",
			src:  "# header\n\necho one\n\n# middle\necho two",
			expected: []Directive{
				{Kind: KindComment, LineNo: 1},
				{Kind: KindEchoExec, Line: "echo one", LineNo: 3},
				{Kind: KindComment, LineNo: 5},
				{Kind: KindEchoExec, Line: "echo two", LineNo: 6},
			},
		},
		{
			name: "surrounding whitespace is trimmed",
			src:  "  echo padded  ",
			expected: []Directive{
				{Kind: KindEchoExec, Line: "echo padded", LineNo: 1},
			},
		},
		{
			name: "mixed sequence",
			src:  "echo one\n@echo two\n# comment\nfalse\necho never",
			expected: []Directive{
				{Kind: KindEchoExec, Line: "echo one", LineNo: 1},
				{Kind: KindSilentExec, Line: "echo two", LineNo: 2},
				{Kind: KindComment, LineNo: 3},
				{Kind: KindEchoExec, Line: "false", LineNo: 4},
				{Kind: KindEchoExec, Line: "echo never", LineNo: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Parse(tt.src))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "comment", KindComment.String())
	assert.Equal(t, "silent-exec", KindSilentExec.String())
	assert.Equal(t, "echo-exec", KindEchoExec.String())
}
