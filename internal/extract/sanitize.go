package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Pre-compiled to avoid runtime compilation on every issue.
var (
	scriptRe  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
)

// trackingHints are substrings that mark an image URL as a tracking
// pixel regardless of its declared dimensions.
var trackingHints = []string{"pixel", "tracking", "open.gif", "beacon", "/track/"}

// Sanitizer strips presentation markup, tracking pixels, and
// platform-specific attributes from raw newsletter HTML, leaving
// cleaned HTML safe for pattern matching. Malformed input degrades
// gracefully and never produces an error.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer builds the allowlist policy shared by all sync passes.
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"h1", "h2", "h3", "h4", "h5", "h6",
		"p", "br", "hr", "div", "span",
		"ul", "ol", "li", "blockquote",
		"figure", "figcaption",
		"table", "tbody", "tr", "td",
		"strong", "em", "b", "i",
	)
	p.AllowAttrs("href").OnElements("a")
	p.AllowElements("a")
	p.AllowAttrs("src", "alt", "width", "height").OnElements("img")
	p.AllowElements("img")
	return &Sanitizer{policy: p}
}

// Clean returns sanitized HTML. Platform class/data attributes are
// dropped by the allowlist; width/height survive on images so pixel
// detection can still see them.
func (s *Sanitizer) Clean(raw string) string {
	cleaned := scriptRe.ReplaceAllString(raw, "")
	cleaned = styleRe.ReplaceAllString(cleaned, "")
	cleaned = commentRe.ReplaceAllString(cleaned, "")
	cleaned = s.policy.Sanitize(cleaned)
	return dropTrackingPixels(cleaned)
}

func dropTrackingPixels(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if isTrackingPixel(img) {
			img.Remove()
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return fragment
	}
	return out
}

func isTrackingPixel(img *goquery.Selection) bool {
	src, _ := img.Attr("src")
	if isTrackingURL(src) {
		return true
	}

	width, _ := img.Attr("width")
	height, _ := img.Attr("height")
	return width == "1" && height == "1"
}

func isTrackingURL(src string) bool {
	lowered := strings.ToLower(src)
	for _, hint := range trackingHints {
		if strings.Contains(lowered, hint) {
			return true
		}
	}
	return false
}
