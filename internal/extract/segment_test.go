package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func body(n int) string {
	return strings.Repeat("word ", n)
}

func TestSegmentCategoryMarkers(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	html := `
		<h6>WORLD</h6>
		<h1>Summit ends</h1><p>` + body(10) + `</p>
		<h6>BUSINESS</h6>
		<h1>Markets rally</h1><p>` + body(10) + `</p>
		<h6>GENERAL</h6>
		<h1>Odds and ends</h1><p>` + body(10) + `</p>`

	items := seg.Segment(html)
	require.Len(t, items, 3)

	assert.Equal(t, "world", items[0].Category)
	assert.Equal(t, "Summit ends", items[0].Title)
	assert.Equal(t, "business", items[1].Category)
	assert.Equal(t, "Markets rally", items[1].Title)
	assert.Equal(t, "general", items[2].Category)
}

func TestSegmentMultipleItemsPerSection(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	html := `<h6>TECHNOLOGY</h6>
		<h2>First story</h2><p>` + body(10) + `</p>
		<h2>Second story</h2><p>` + body(10) + `</p>`

	items := seg.Segment(html)
	require.Len(t, items, 2)
	assert.Equal(t, "First story", items[0].Title)
	assert.Equal(t, "Second story", items[1].Title)
	for _, item := range items {
		assert.Equal(t, "technology", item.Category)
	}
}

func TestSegmentSectionEndsAtHorizontalRule(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	html := `<h6>WORLD</h6><h1>Story</h1><p>` + body(10) + `</p><hr><p>Footer boilerplate far below the fold</p>`

	items := seg.Segment(html)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0].BodyHTML, "Footer boilerplate")
}

func TestSegmentDiscardsPlaceholderSlots(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	// A placeholder heading with an empty body is an unfilled template
	// slot; the chain must still yield exactly one fallback item.
	html := `<h6>WORLD</h6><h1>Add a title</h1><p>hi</p>`

	items := seg.Segment(html)
	require.Len(t, items, 1)
	assert.Equal(t, GeneralCategory, items[0].Category)
}

func TestSegmentDividerChunksWithoutMarkers(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	html := `<h1>Solo story</h1><p>` + body(10) + `</p><hr><p>no heading here, so this chunk is skipped entirely</p>`

	items := seg.Segment(html)
	require.Len(t, items, 1)
	assert.Equal(t, "Solo story", items[0].Title)
	assert.Empty(t, items[0].Category)
}

func TestSegmentWholeDocumentFallback(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	items := seg.Segment(`<p>just a blob of text with no structure at all</p>`)
	require.Len(t, items, 1)
	assert.Equal(t, GeneralCategory, items[0].Category)
	assert.Empty(t, items[0].Title)
}

func TestSegmentNeverReturnsZeroItems(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	for _, html := range []string{"", "<hr><hr><hr>", "<h1></h1>", "garbage < not html >"} {
		items := seg.Segment(html)
		assert.Len(t, items, 1, "input %q", html)
	}
}

func TestSegmentEnrichment(t *testing.T) {
	opts := DefaultSegmentOptions()
	opts.NewsletterDomain = "mynews.example.com"
	seg := NewSegmenter(opts)

	html := `<h6>WORLD</h6><h1>Story</h1>
		<figure><img src="https://cdn.example.com/lead.jpg"></figure>
		<p>` + body(20) + `</p>
		<a href="https://mynews.example.com/archive">internal</a>
		<a href="https://other.example.org/report">external</a>
		<a href="/relative">relative</a>`

	items := seg.Segment(html)
	require.Len(t, items, 1)

	item := items[0]
	assert.Equal(t, "https://cdn.example.com/lead.jpg", item.FeaturedImage)
	assert.Equal(t, []string{"https://other.example.org/report"}, item.ExternalLinks)
	assert.NotEmpty(t, item.Excerpt)
	assert.LessOrEqual(t, len(item.Excerpt), 200)
}

func TestSegmentExcerptTruncation(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	items := seg.Segment(`<p>` + body(100) + `</p>`)
	require.Len(t, items, 1)
	assert.True(t, strings.HasSuffix(items[0].Excerpt, "..."))
	assert.LessOrEqual(t, len(items[0].Excerpt), 200)
}

func TestSegmentExcerptKeepsRuneBoundaries(t *testing.T) {
	// An odd byte limit lands inside a two-byte rune; the cut must back
	// off to the previous boundary instead of emitting invalid UTF-8.
	text := strings.Repeat("é", 200)
	got := makeExcerpt(text, 181)

	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "é", string([]rune(got)[0]))
}

func TestSegmentOutboundLinksDomainBoundary(t *testing.T) {
	opts := DefaultSegmentOptions()
	opts.NewsletterDomain = "brief.example.com"
	seg := NewSegmenter(opts)

	html := `<p>` + body(10) + `</p>
		<a href="https://brief.example.com/a">own</a>
		<a href="https://www.brief.example.com/b">own subdomain</a>
		<a href="https://evilbrief.example.com/c">lookalike</a>`

	items := seg.Segment(html)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"https://evilbrief.example.com/c"}, items[0].ExternalLinks)
}

func TestSegmentSponsoredSection(t *testing.T) {
	seg := NewSegmenter(DefaultSegmentOptions())

	html := `<h6>SPONSORED</h6><h1>Our partner</h1><p>` + body(10) + `</p>`
	items := seg.Segment(html)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsSponsored)
	assert.Equal(t, SponsoredCategory, items[0].Category)
}

func TestSegmentCustomVocabulary(t *testing.T) {
	opts := DefaultSegmentOptions()
	opts.Categories = []string{"SCIENCE"}
	seg := NewSegmenter(opts)

	html := `<h6>SCIENCE</h6><h1>Discovery</h1><p>` + body(10) + `</p>
		<h6>WORLD</h6><h1>Ignored marker</h1><p>` + body(10) + `</p>`

	items := seg.Segment(html)
	// WORLD is not in the vocabulary, so its heading is plain content
	// inside the science section.
	require.NotEmpty(t, items)
	assert.Equal(t, "science", items[0].Category)
}
