package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no urls",
			text: "just some text",
			want: nil,
		},
		{
			name: "single url",
			text: "check https://example.com/page out",
			want: []string{"https://example.com/page"},
		},
		{
			name: "multiple urls in order",
			text: "http://first.example https://second.example/x",
			want: []string{"http://first.example", "https://second.example/x"},
		},
		{
			name: "scheme without host is dropped",
			text: "broken https:// thing",
			want: nil,
		},
		{
			name: "non-http schemes ignored",
			text: "ftp://example.com file",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURLs(tt.text))
		})
	}
}

// ChooseLink's precedence is deliberately surprising: a URL extracted from
// the message wins over an explicitly supplied link. These cases pin that
// behavior down so nobody "fixes" it.
func TestChooseLink(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		explicit string
		want     string
	}{
		{
			name:     "nothing anywhere",
			message:  "hello world",
			explicit: "",
			want:     "",
		},
		{
			name:     "first extracted url wins",
			message:  "see https://u1.example and https://u2.example",
			explicit: "",
			want:     "https://u1.example",
		},
		{
			name:     "extracted beats explicit",
			message:  "see https://u1.example",
			explicit: "https://explicit.example",
			want:     "https://u1.example",
		},
		{
			name:     "explicit is the fallback",
			message:  "no urls here",
			explicit: "https://explicit.example",
			want:     "https://explicit.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseLink(tt.message, tt.explicit))
		})
	}
}
