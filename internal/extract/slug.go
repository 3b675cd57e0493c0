package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	slugInvalidRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe   = regexp.MustCompile(`\s+`)
	slugHyphenRe  = regexp.MustCompile(`-{2,}`)
)

// maxSlugAttempts bounds the counter-suffix collision loop before
// surrendering to a timestamp-only suffix.
const maxSlugAttempts = 100

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugInvalidRe.ReplaceAllString(slug, "")
	slug = slugSpaceRe.ReplaceAllString(slug, "-")
	slug = slugHyphenRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// SlugExistsFunc reports whether a slug is already taken.
type SlugExistsFunc func(ctx context.Context, slug string) (bool, error)

// UniqueSlug resolves collisions against persisted articles: first the
// base slug, then a high-resolution timestamp suffix, then an
// incrementing counter, and finally a fresh timestamp as the give-up
// answer. Callers re-ingesting a known article must bypass this and
// reuse the stored slug.
func UniqueSlug(ctx context.Context, base string, exists SlugExistsFunc) (string, error) {
	if base == "" {
		base = "untitled"
	}

	taken, err := exists(ctx, base)
	if err != nil {
		return "", fmt.Errorf("check slug %q: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	stamped := fmt.Sprintf("%s-%d", base, time.Now().UnixNano())
	taken, err = exists(ctx, stamped)
	if err != nil {
		return "", fmt.Errorf("check slug %q: %w", stamped, err)
	}
	if !taken {
		return stamped, nil
	}

	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		taken, err = exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}

	return fmt.Sprintf("%s-%d", base, time.Now().UnixNano()), nil
}
