package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	maxSlugLen   = 80
	suffixLen    = 6
	fallbackSlug = "campana"
)

// unsafeRun matches a maximal run of characters outside [A-Za-z0-9._-].
// Spaces fall in the run, so they become underscores too.
var unsafeRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeSlug turns a campaign identifier into a filesystem-safe name fragment.
// The result only contains [A-Za-z0-9._-], is at most 80 bytes long and never
// starts or ends with an underscore. It may be empty.
func SafeSlug(s string) string {
	s = unsafeRun.ReplaceAllString(s, "_")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	return strings.Trim(s, "_")
}

// RandomSuffix returns six lowercase hex characters from a fresh v4 UUID.
func RandomSuffix() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:suffixLen]
}

// ArchiveFilename builds registros_<slug>_<suffix>.kmz.
func ArchiveFilename(slug, suffix string) string {
	if slug == "" {
		slug = fallbackSlug
	}
	return fmt.Sprintf("registros_%s_%s.kmz", slug, suffix)
}
