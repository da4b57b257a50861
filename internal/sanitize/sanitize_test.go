package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace", " \r\n\t ", ""},
		{"trim and crlf", "  Hello\r\nWorld  \r\n", "Hello\nWorld"},
		{"bare fence", "```\nHello\n```", "Hello"},
		{"language fence", "```markdown\n# Title\n\nBody\n```\n", "# Title\n\nBody"},
		{
			"embedded fences untouched",
			"Intro\n\n```go\nx := 1\n```\n\nOutro",
			"Intro\n\n```go\nx := 1\n```\n\nOutro",
		},
		{
			"two fenced blocks untouched",
			"```\nA\n```\n\n```\nB\n```",
			"```\nA\n```\n\n```\nB\n```",
		},
		{
			"disclaimer stripped",
			"I apologize, I cannot translate this.\n\nActual content.",
			"Actual content.",
		},
		{
			"disclaimer variants",
			"Ok. Here it is\nMY APOLOGIES for the delay\nplease manually check\nI cannot do that\nKept line",
			"Kept line",
		},
		{"ok without space is kept", "Ok.Computer", "Ok.Computer"},
		{"fully disclaimed", "I cannot translate this.", ""},
		{
			"duplicate paragraphs",
			"One\n\nTwo\n\n\nOne\n\nThree\n\nTwo",
			"One\n\nTwo\n\nThree",
		},
		{"error reply passes through", "ERROR", "ERROR"},
		{
			"disclaimer before fence",
			"Ok. here you go\n```\nこんにちは\n```",
			"こんにちは",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"Ok. sure\n```md\nA\n\nA\n```",
		"```\n```\nnested\n```\n```",
		"A\n\n\n\nB\n\nA",
		"  My apologies\n\n```\nI cannot\n```\n",
		"Plain text with a trailing fence\n```",
		"```text\nI apologize\n```",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
		doc := Document(in)
		assert.Equal(t, doc, Document(doc), "input %q", in)
	}
}

func TestDocument_KeepsRepeatedParagraphs(t *testing.T) {
	in := "```\nこんにちは\n\n世界\n\nこんにちは\n```"
	assert.Equal(t, "こんにちは\n\n世界\n\nこんにちは", Document(in))
	assert.Equal(t, "こんにちは\n\n世界", Text(in))
}

func TestUnusable(t *testing.T) {
	assert.True(t, Unusable(""))
	assert.True(t, Unusable("ERROR"))
	assert.False(t, Unusable("error handling"))
	assert.False(t, Unusable("こんにちは"))
}
