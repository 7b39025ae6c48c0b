package hospital

import (
	"strings"
	"time"
	"unicode/utf8"

	"hospital-jobs/internal/domain"

	"github.com/google/uuid"
)

// MaxErrorMessageLen bounds last_error_message, counted in runes.
const MaxErrorMessageLen = 500

type Hospital struct {
	ID      uuid.UUID
	Name    string
	Website string

	CareerPageURL  *string
	CareerPlatform *domain.Platform
	IsActive       bool

	DiscoveryAttemptedAt *time.Time
	LastScrapedAt        *time.Time
	LastScrapeSuccess    bool
	ScrapeSuccessCount   int
	ScrapeErrorCount     int
	LastErrorMessage     *string
	JobPostingsCount     int
}

// Platform returns the stored platform, or unknown when none is set.
func (h Hospital) Platform() domain.Platform {
	if h.CareerPlatform == nil {
		return domain.PlatformUnknown
	}
	return *h.CareerPlatform
}

func (h Hospital) HasCareerPage() bool {
	return h.CareerPageURL != nil && strings.TrimSpace(*h.CareerPageURL) != ""
}

// ScrapeOutcome is one scrape attempt folded into the hospital's bookkeeping.
type ScrapeOutcome struct {
	Success      bool
	ErrorMessage string
	JobsFound    int
	At           time.Time
}

type DiscoveryOutcome string

const (
	DiscoveryFound    DiscoveryOutcome = "found"
	DiscoveryNotFound DiscoveryOutcome = "not_found"
	DiscoveryError    DiscoveryOutcome = "error"
)

// TruncateError trims msg to MaxErrorMessageLen runes.
func TruncateError(msg string) string {
	msg = strings.TrimSpace(msg)
	if utf8.RuneCountInString(msg) <= MaxErrorMessageLen {
		return msg
	}
	r := []rune(msg)
	return string(r[:MaxErrorMessageLen-3]) + "..."
}
