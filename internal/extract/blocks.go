package extract

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"

	"NewsletterIngest/internal/domain"
)

// minParagraphLength filters accidental fragments when converting
// elements without a dedicated rule.
const minParagraphLength = 20

var (
	boldOpenRe    = regexp.MustCompile(`(?i)<b(\s[^>]*)?>`)
	boldCloseRe   = regexp.MustCompile(`(?i)</b>`)
	italicOpenRe  = regexp.MustCompile(`(?i)<i(\s[^>]*)?>`)
	italicCloseRe = regexp.MustCompile(`(?i)</i>`)
	brRe          = regexp.MustCompile(`(?i)<br[^>]*/?>`)
	anchorOpenRe  = regexp.MustCompile(`(?i)<a\s[^>]*href="([^"]*)"[^>]*>`)
	lineSplitRe   = regexp.MustCompile(`(?i)</p>|</h[1-6]>|<br[^>]*/?>`)
)

// inline tags kept verbatim inside paragraph and quote text.
var inlineKeep = map[string]struct{}{
	"strong": {}, "em": {}, "br": {}, "a": {},
}

// ConvertBlocks turns one item's body HTML into an ordered block
// sequence. Elements without a matching rule become paragraphs when
// their stripped text is long enough; when nothing matches at all, a
// coarse text split guarantees content is never lost.
func ConvertBlocks(bodyHTML string) []domain.ContentBlock {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return fallbackBlocks(bodyHTML)
	}

	var blocks []domain.ContentBlock
	doc.Find("body").Children().Each(func(_ int, sel *goquery.Selection) {
		convertNode(sel, &blocks)
	})

	if len(blocks) == 0 {
		if text := stripText(bodyHTML); text != "" {
			return fallbackBlocks(bodyHTML)
		}
	}

	for i := range blocks {
		blocks[i].ID = blockID(i, blocks[i])
	}
	return blocks
}

func convertNode(sel *goquery.Selection, blocks *[]domain.ContentBlock) {
	node := goquery.NodeName(sel)
	switch node {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		*blocks = append(*blocks, domain.ContentBlock{
			Type: domain.BlockHeading,
			Data: domain.BlockData{Text: collapseSpace(text), Level: int(node[1] - '0')},
		})

	case "p":
		text := inlineText(sel)
		if text == "" {
			return
		}
		*blocks = append(*blocks, domain.ContentBlock{
			Type: domain.BlockParagraph,
			Data: domain.BlockData{Text: text},
		})

	case "img":
		if block, ok := imageBlock(sel, ""); ok {
			*blocks = append(*blocks, block)
		}

	case "figure":
		caption := collapseSpace(strings.TrimSpace(sel.Find("figcaption").Text()))
		if block, ok := imageBlock(sel.Find("img").First(), caption); ok {
			*blocks = append(*blocks, block)
		}

	case "ul", "ol":
		items := listItems(sel)
		if len(items) == 0 {
			return
		}
		style := "unordered"
		if node == "ol" {
			style = "ordered"
		}
		*blocks = append(*blocks, domain.ContentBlock{
			Type: domain.BlockList,
			Data: domain.BlockData{Items: items, Style: style},
		})

	case "hr":
		*blocks = append(*blocks, domain.ContentBlock{Type: domain.BlockDivider})

	case "blockquote":
		text := inlineText(sel)
		if text == "" {
			return
		}
		*blocks = append(*blocks, domain.ContentBlock{
			Type: domain.BlockQuote,
			Data: domain.BlockData{Text: text},
		})

	case "div", "span", "section", "center", "table", "tbody", "tr", "td":
		// Containers: descend when they hold structured children,
		// otherwise treat their text as one paragraph.
		if sel.Children().Length() > 0 && sel.ChildrenFiltered("p, h1, h2, h3, h4, h5, h6, img, figure, ul, ol, hr, blockquote, div, table, tbody, tr, td").Length() > 0 {
			sel.Children().Each(func(_ int, child *goquery.Selection) {
				convertNode(child, blocks)
			})
			return
		}
		appendLooseParagraph(sel, blocks)

	default:
		appendLooseParagraph(sel, blocks)
	}
}

func appendLooseParagraph(sel *goquery.Selection, blocks *[]domain.ContentBlock) {
	text := collapseSpace(strings.TrimSpace(sel.Text()))
	if len(text) < minParagraphLength {
		return
	}
	*blocks = append(*blocks, domain.ContentBlock{
		Type: domain.BlockParagraph,
		Data: domain.BlockData{Text: text},
	})
}

func imageBlock(img *goquery.Selection, caption string) (domain.ContentBlock, bool) {
	src, ok := img.Attr("src")
	if !ok || src == "" || isTrackingURL(src) {
		return domain.ContentBlock{}, false
	}
	alt, _ := img.Attr("alt")
	return domain.ContentBlock{
		Type: domain.BlockImage,
		Data: domain.BlockData{URL: src, Alt: alt, Caption: caption},
	}, true
}

func listItems(sel *goquery.Selection) []string {
	var items []string
	sel.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		// Nested paragraphs inside list items are unwrapped to text.
		text := collapseSpace(strings.TrimSpace(li.Text()))
		if text != "" {
			items = append(items, text)
		}
	})
	return items
}

// inlineText renders a paragraph-like element keeping strong/em/br/a,
// normalizing <b>/<i> to <strong>/<em>, and decoding entities.
func inlineText(sel *goquery.Selection) string {
	inner, err := sel.Html()
	if err != nil {
		return collapseSpace(strings.TrimSpace(sel.Text()))
	}

	inner = boldOpenRe.ReplaceAllString(inner, "<strong>")
	inner = boldCloseRe.ReplaceAllString(inner, "</strong>")
	inner = italicOpenRe.ReplaceAllString(inner, "<em>")
	inner = italicCloseRe.ReplaceAllString(inner, "</em>")
	inner = brRe.ReplaceAllString(inner, "<br>")
	inner = anchorOpenRe.ReplaceAllString(inner, `<a href="$1">`)
	inner = stripDisallowedTags(inner)

	return strings.TrimSpace(collapseSpace(nethtml.UnescapeString(inner)))
}

var anyTagRe = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9]*)[^>]*>`)

func stripDisallowedTags(inner string) string {
	return anyTagRe.ReplaceAllStringFunc(inner, func(tag string) string {
		m := anyTagRe.FindStringSubmatch(tag)
		if m == nil {
			return ""
		}
		if _, ok := inlineKeep[strings.ToLower(m[1])]; ok {
			return tag
		}
		return ""
	})
}

// fallbackBlocks is the last line of defense: split on paragraph,
// heading, and line-break boundaries and emit every non-trivial line
// as a paragraph.
func fallbackBlocks(bodyHTML string) []domain.ContentBlock {
	var blocks []domain.ContentBlock
	for _, line := range lineSplitRe.Split(bodyHTML, -1) {
		text := stripText(line)
		if len(text) < minParagraphLength {
			continue
		}
		blocks = append(blocks, domain.ContentBlock{
			Type: domain.BlockParagraph,
			Data: domain.BlockData{Text: text},
		})
	}
	for i := range blocks {
		blocks[i].ID = blockID(i, blocks[i])
	}
	return blocks
}

func collapseSpace(s string) string {
	return spaceRe.ReplaceAllString(s, " ")
}

// blockID derives a stable id from position, type, and payload, so
// conversion stays pure and re-runs produce identical blocks.
func blockID(index int, block domain.ContentBlock) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%d|%s",
		index, block.Type, block.Data.Text, block.Data.URL,
		block.Data.Style, block.Data.Level, strings.Join(block.Data.Items, "|"))
	return fmt.Sprintf("blk-%x", h.Sum64())
}
