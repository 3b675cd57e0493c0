package extract

import "strings"

// categoryMap translates segmentation-marker categories into the
// downstream taxonomy. Unknown markers fall back to the general bucket.
var categoryMap = map[string]string{
	"world":      "world",
	"national":   "national",
	"technology": "technology",
	"business":   "business",
	"sponsored":  SponsoredCategory,
	"misc":       GeneralCategory,
	"general":    GeneralCategory,
}

// keywordEntry pairs a category with its scoring vocabulary. Slice
// order is the tie-break: the earliest declared category wins.
type keywordEntry struct {
	category string
	keywords []string
}

var keywordTable = []keywordEntry{
	{"world", []string{
		"united nations", "international", "global", "diplomat", "foreign",
		"treaty", "summit", "embassy", "geopolit", "sanction", "border",
	}},
	{"national", []string{
		"parliament", "congress", "government", "minister", "election",
		"federal", "senate", "policy", "domestic", "governor",
	}},
	{"technology", []string{
		"software", "startup", "silicon", "artificial intelligence", " ai ",
		"chip", "app ", "cyber", "tech", "robot", "internet", "smartphone",
	}},
	{"business", []string{
		"market", "stock", "revenue", "earnings", "investor", "merger",
		"acquisition", "economy", "inflation", "bank", "ipo", "quarterly",
	}},
}

// titleWeight makes a title hit count as three body hits.
const titleWeight = 3

// Classify assigns a downstream category. An explicit category coming
// out of segmentation is authoritative and only mapped through the
// taxonomy; otherwise keyword scoring over title and body decides.
// Deterministic: identical input always yields identical output.
func Classify(explicit, title, body string) string {
	if explicit != "" {
		if mapped, ok := categoryMap[strings.ToLower(strings.TrimSpace(explicit))]; ok {
			return mapped
		}
		return GeneralCategory
	}

	loweredTitle := " " + strings.ToLower(title) + " "
	loweredBody := " " + strings.ToLower(body) + " "

	best := GeneralCategory
	bestScore := 0
	for _, entry := range keywordTable {
		score := 0
		for _, kw := range entry.keywords {
			score += titleWeight * strings.Count(loweredTitle, kw)
			score += strings.Count(loweredBody, kw)
		}
		if score > bestScore {
			best = entry.category
			bestScore = score
		}
	}
	return best
}
