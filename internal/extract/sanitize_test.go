package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanStripsScriptsAndStyles(t *testing.T) {
	s := NewSanitizer()

	raw := `<style>.x{color:red}</style><script>alert(1)</script><p>Keep me</p>`
	cleaned := s.Clean(raw)

	assert.NotContains(t, cleaned, "script")
	assert.NotContains(t, cleaned, "color:red")
	assert.Contains(t, cleaned, "Keep me")
}

func TestCleanDropsPlatformAttributes(t *testing.T) {
	s := NewSanitizer()

	raw := `<p class="beehiiv-body" data-id="42" style="margin:0">Text</p>`
	cleaned := s.Clean(raw)

	assert.NotContains(t, cleaned, "beehiiv-body")
	assert.NotContains(t, cleaned, "data-id")
	assert.NotContains(t, cleaned, "margin")
	assert.Contains(t, cleaned, "Text")
}

func TestCleanRemovesTrackingPixels(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name string
		img  string
	}{
		{"one by one", `<img src="https://cdn.example.com/a.png" width="1" height="1">`},
		{"pixel url", `<img src="https://t.example.com/pixel.png">`},
		{"tracking url", `<img src="https://x.example.com/tracking/abc.gif">`},
		{"open gif", `<img src="https://m.example.com/open.gif?u=1">`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned := s.Clean(`<p>Body</p>` + tt.img)
			assert.NotContains(t, cleaned, "<img")
			assert.Contains(t, cleaned, "Body")
		})
	}
}

func TestCleanKeepsContentImages(t *testing.T) {
	s := NewSanitizer()

	cleaned := s.Clean(`<img src="https://cdn.example.com/photo.jpg" alt="Photo" width="600" height="400">`)

	assert.Contains(t, cleaned, "photo.jpg")
	assert.Contains(t, cleaned, `alt="Photo"`)
}

func TestCleanMalformedInputDoesNotPanic(t *testing.T) {
	s := NewSanitizer()

	for _, raw := range []string{
		"<p>unclosed",
		"</div></div><h1>orphans",
		strings.Repeat("<", 100),
		"",
	} {
		assert.NotPanics(t, func() { s.Clean(raw) })
	}
}
