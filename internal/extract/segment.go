package extract

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"

	"NewsletterIngest/internal/domain"
)

const (
	// GeneralCategory tags content no strategy could classify.
	GeneralCategory = "general"

	// SponsoredCategory marks paid placements found by the marker scan.
	SponsoredCategory = "sponsored"
)

var (
	smallHeadingRe = regexp.MustCompile(`(?is)<h[4-6][^>]*>(.*?)</h[4-6]>`)
	largeHeadingRe = regexp.MustCompile(`(?is)<h[1-3][^>]*>(.*?)</h[1-3]>`)
	hrRe           = regexp.MustCompile(`(?i)<hr[^>]*/?>`)
	tagRe          = regexp.MustCompile(`<[^>]*>`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// SegmentOptions tunes the strategy chain. The category vocabulary is
// tied to the newsletter template in use, so it is configuration, not
// code.
type SegmentOptions struct {
	// Categories is the small-heading marker vocabulary, matched
	// case-insensitively.
	Categories []string

	// PlaceholderTitles are template defaults that mark an unfilled
	// slot; items carrying one are discarded.
	PlaceholderTitles []string

	// MinBodyLength is the minimum stripped-text length for an item to
	// count as real content.
	MinBodyLength int

	// NewsletterDomain is the publication's own host; links into it are
	// navigation, not outbound references.
	NewsletterDomain string

	// ExcerptLength caps the auto-generated excerpt.
	ExcerptLength int
}

// DefaultSegmentOptions returns the vocabulary of the known templates.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{
		Categories: []string{
			"WORLD", "NATIONAL", "TECHNOLOGY", "BUSINESS", "MISC", "SPONSORED", "GENERAL",
		},
		PlaceholderTitles: []string{
			"add a title", "headline goes here", "untitled", "new post",
		},
		MinBodyLength: 20,
		ExcerptLength: 180,
	}
}

// Segmenter partitions cleaned issue HTML into news items through an
// ordered fallback chain. It never fails: a strategy that matches
// nothing simply hands over to the next one, and the final tier always
// yields exactly one item covering the whole document.
type Segmenter struct {
	opts       SegmentOptions
	categories map[string]string // upper-case marker -> canonical category
}

// NewSegmenter compiles the vocabulary lookup for the given options.
func NewSegmenter(opts SegmentOptions) *Segmenter {
	if opts.MinBodyLength <= 0 {
		opts.MinBodyLength = DefaultSegmentOptions().MinBodyLength
	}
	if opts.ExcerptLength <= 0 {
		opts.ExcerptLength = DefaultSegmentOptions().ExcerptLength
	}
	if len(opts.Categories) == 0 {
		opts.Categories = DefaultSegmentOptions().Categories
	}
	if len(opts.PlaceholderTitles) == 0 {
		opts.PlaceholderTitles = DefaultSegmentOptions().PlaceholderTitles
	}

	categories := make(map[string]string, len(opts.Categories))
	for _, c := range opts.Categories {
		categories[strings.ToUpper(strings.TrimSpace(c))] = strings.ToLower(strings.TrimSpace(c))
	}
	return &Segmenter{opts: opts, categories: categories}
}

// Segment runs the strategy chain over cleaned HTML.
func (s *Segmenter) Segment(cleaned string) []domain.NewsItem {
	items := s.fromCategoryMarkers(cleaned)
	if len(items) == 0 {
		items = s.fromDividerChunks(cleaned)
	}
	if len(items) == 0 {
		items = []domain.NewsItem{s.wholeDocument(cleaned)}
	}

	for i := range items {
		s.enrich(&items[i])
	}
	return items
}

type marker struct {
	category string
	start    int // index of the heading's opening tag
	end      int // index just past the closing tag
}

// fromCategoryMarkers implements the explicit-marker strategy: each
// known small heading opens a section running to the next marker, a
// horizontal rule, or end of document.
func (s *Segmenter) fromCategoryMarkers(html string) []domain.NewsItem {
	matches := smallHeadingRe.FindAllStringSubmatchIndex(html, -1)
	var markers []marker
	for _, m := range matches {
		label := strings.ToUpper(stripText(html[m[2]:m[3]]))
		if category, ok := s.categories[label]; ok {
			markers = append(markers, marker{category: category, start: m[0], end: m[1]})
		}
	}
	if len(markers) == 0 {
		return nil
	}

	var items []domain.NewsItem
	for i, mk := range markers {
		bodyEnd := len(html)
		if i+1 < len(markers) {
			bodyEnd = markers[i+1].start
		}
		body := html[mk.end:bodyEnd]
		if hr := hrRe.FindStringIndex(body); hr != nil {
			body = body[:hr[0]]
		}
		items = append(items, s.itemsFromSection(mk.category, body)...)
	}
	return items
}

// itemsFromSection splits one section into per-item chunks on large
// headings. A section with no item headings is one untitled item;
// items with placeholder titles or trivial bodies are unfilled
// template slots and are dropped.
func (s *Segmenter) itemsFromSection(category, body string) []domain.NewsItem {
	headings := largeHeadingRe.FindAllStringSubmatchIndex(body, -1)
	if len(headings) == 0 {
		if len(stripText(body)) < s.opts.MinBodyLength {
			return nil
		}
		return []domain.NewsItem{{
			Category:    category,
			BodyHTML:    body,
			IsSponsored: category == SponsoredCategory,
		}}
	}

	var items []domain.NewsItem
	for i, h := range headings {
		title := stripText(body[h[2]:h[3]])
		itemEnd := len(body)
		if i+1 < len(headings) {
			itemEnd = headings[i+1][0]
		}
		itemBody := body[h[1]:itemEnd]

		if s.isPlaceholderTitle(title) || len(stripText(itemBody)) < s.opts.MinBodyLength {
			continue
		}
		items = append(items, domain.NewsItem{
			Title:       title,
			Category:    category,
			BodyHTML:    itemBody,
			IsSponsored: category == SponsoredCategory,
		})
	}
	return items
}

// fromDividerChunks is the marker-less strategy: split the document on
// horizontal rules and keep chunks holding exactly one large heading.
func (s *Segmenter) fromDividerChunks(html string) []domain.NewsItem {
	var items []domain.NewsItem
	for _, chunk := range hrRe.Split(html, -1) {
		headings := largeHeadingRe.FindAllStringSubmatchIndex(chunk, -1)
		if len(headings) != 1 {
			continue
		}
		h := headings[0]
		title := stripText(chunk[h[2]:h[3]])
		body := chunk[h[1]:]

		if s.isPlaceholderTitle(title) || len(stripText(body)) < s.opts.MinBodyLength {
			continue
		}
		items = append(items, domain.NewsItem{Title: title, BodyHTML: body})
	}
	return items
}

// wholeDocument is the final tier: one item wrapping the entire issue,
// so an issue is never silently dropped.
func (s *Segmenter) wholeDocument(html string) domain.NewsItem {
	return domain.NewsItem{Category: GeneralCategory, BodyHTML: html}
}

func (s *Segmenter) isPlaceholderTitle(title string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(title))
	if trimmed == "" {
		return true
	}
	for _, p := range s.opts.PlaceholderTitles {
		if trimmed == strings.ToLower(p) {
			return true
		}
	}
	return false
}

// enrich fills the item's featured image, outbound links, and excerpt
// from its body HTML.
func (s *Segmenter) enrich(item *domain.NewsItem) {
	item.Excerpt = makeExcerpt(stripText(item.BodyHTML), s.opts.ExcerptLength)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.BodyHTML))
	if err != nil {
		return
	}

	item.FeaturedImage = firstContentImage(doc)
	item.ExternalLinks = outboundLinks(doc, s.opts.NewsletterDomain)
}

// firstContentImage prefers images inside a figure container, then
// falls back to any image tag.
func firstContentImage(doc *goquery.Document) string {
	if src, ok := doc.Find("figure img").First().Attr("src"); ok && !isTrackingURL(src) {
		return src
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || isTrackingURL(src) {
			return true
		}
		found = src
		return false
	})
	return found
}

// outboundLinks collects absolute hyperlinks whose host differs from
// the newsletter's own domain; internal navigation is excluded.
func outboundLinks(doc *goquery.Document, ownDomain string) []string {
	var links []string
	seen := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		parsed, err := url.Parse(strings.TrimSpace(href))
		if err != nil || parsed.Host == "" {
			return
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return
		}
		if isOwnHost(parsed.Host, ownDomain) {
			return
		}
		if _, dup := seen[parsed.String()]; dup {
			return
		}
		seen[parsed.String()] = struct{}{}
		links = append(links, parsed.String())
	})
	return links
}

// isOwnHost matches the domain itself and its subdomains on a label
// boundary, so lookalike hosts sharing only a suffix stay outbound.
func isOwnHost(host, ownDomain string) bool {
	if ownDomain == "" {
		return false
	}
	h := strings.ToLower(host)
	d := strings.ToLower(ownDomain)
	return h == d || strings.HasSuffix(h, "."+d)
}

// Text strips markup, decodes entities, and collapses whitespace. It
// is what classification and length thresholds operate on.
func Text(html string) string {
	return stripText(html)
}

func stripText(html string) string {
	text := tagRe.ReplaceAllString(html, " ")
	text = nethtml.UnescapeString(text)
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

func makeExcerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	// Never split a multi-byte rune at the cut point.
	for len(cut) > 0 && !utf8.RuneStart(text[len(cut)]) {
		cut = cut[:len(cut)-1]
	}
	if idx := strings.LastIndex(cut, " "); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
