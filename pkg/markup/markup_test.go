package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "just text", "just text"},
		{"empty", "", ""},
		{"tags", "<p>Hello <b>world</b></p>", "Hello world"},
		{"entities", "<p>fish &amp; chips</p>", "fish & chips"},
		{"link", `<a href="http://x.io">site</a> here`, "site here"},
		{"unclosed", "<p>open <i>ended", "open ended"},
		{"comment", "a<!-- hidden -->b", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestNormalizeComposes(t *testing.T) {
	decomposed := "<p>Zu\u0308rich</p>"
	assert.Equal(t, "Z\u00fcrich", Normalize(decomposed))
	assert.Equal(t, 1, CountWords(Normalize(decomposed)))
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"Hi, I'm not really a person.", 7},
		{"snake_case counts once", 3},
		{"Zürich 2014", 2},
		{"--- ...", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CountWords(tt.in), tt.in)
	}
}

func TestCountWordsAfterNormalize(t *testing.T) {
	assert.Equal(t, 4, CountWords(Normalize("<p>I like <b>Go</b> &amp; XML</p>")))
}
