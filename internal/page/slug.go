// internal/page/slug.go
//
// Slug helper.
//
// MakeSlug converts arbitrary text into a URL-safe slug restricted to ASCII
// a-z, 0-9 and "-".
//
// Rules
// -----
// 1. Lower-case everything.
// 2. Convert any run of non-[a-z0-9] characters to one "-".  That strips
//    spaces, punctuation, emoji, and non-ASCII.
// 3. Trim leading / trailing "-".
// 4. If the result is empty, return "page".
// 5. Cap at 100 bytes (the `slug` column width).

package page

import "strings"

const maxSlugLen = 100

// MakeSlug converts title to lower-kebab ASCII.
func MakeSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastWasDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "page"
	}
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// IsSlug reports whether s is already in canonical slug form.
func IsSlug(s string) bool { return s != "" && MakeSlug(s) == s }
