// Package compose builds length-bounded social posts from events.
package compose

import (
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ijug-ev/cindy/internal/feed"
)

// DefaultMaxLength is the Mastodon status length limit.
const DefaultMaxLength = 500

const timestampLayout = "2. January 2006 15:04"

// Composer turns events into posts that fit the target length limit.
type Composer struct {
	zone      *time.Location
	maxLength int
	logger    *zap.Logger
}

// New creates a Composer anchoring wall-clock times in zone. maxLength
// values below one fall back to DefaultMaxLength.
func New(zone *time.Location, maxLength int, logger *zap.Logger) *Composer {
	if zone == nil {
		zone = time.UTC
	}
	if maxLength < 1 {
		maxLength = DefaultMaxLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{zone: zone, maxLength: maxLength, logger: logger}
}

// Compose builds the best-fitting post variant for the event. The second
// return is false when even the shortest feasible variant would be too
// long, in which case no post must be emitted.
//
// Variants are attempted in order: body+link with the teaser as preview,
// teaser+link, teaser alone, link alone.
func (c *Composer) Compose(ev feed.Event) (feed.Post, bool) {
	visibility := VisibilityFor(ev.Classification)
	teaser := c.teaser(ev)
	link := link(ev)
	body := c.body(ev.Description, teaser, link)

	switch {
	case runes(body)+runes(link)+runes(teaser) <= c.maxLength:
		return feed.Post{Text: body + link, SpoilerText: teaser, Visibility: visibility}, true
	case runes(teaser)+runes(link) <= c.maxLength:
		return feed.Post{Text: teaser + link, Visibility: visibility}, true
	case runes(teaser) <= c.maxLength:
		return feed.Post{Text: teaser, Visibility: visibility}, true
	case link != "" && runes(link) <= c.maxLength:
		return feed.Post{Text: link, Visibility: visibility}, true
	default:
		c.logger.Warn("dropping event, even the shortest feasible variant would be too long",
			zap.String("uid", ev.UID))
		return feed.Post{}, false
	}
}

// VisibilityFor maps an event classification to a post visibility.
// Per RFC 5545 §3.8.1.3 a missing classification means public; an
// unknown value gets the restrictive followers-only default.
func VisibilityFor(classification string) feed.Visibility {
	switch classification {
	case "PUBLIC", "":
		return feed.VisibilityPublic
	case "PRIVATE":
		return feed.VisibilityFollowers
	case "CONFIDENTIAL":
		return feed.VisibilityDirect
	default:
		return feed.VisibilityFollowers
	}
}

// teaser assembles the preview line: title, localized start, location.
func (c *Composer) teaser(ev feed.Event) string {
	var b strings.Builder
	if ev.Summary != "" {
		b.WriteString("📢 ")
		b.WriteString(ev.Summary)
	}
	if !ev.Start.IsZero() {
		if formatted := ev.Start.Format(timestampLayout, c.zone); formatted != "" {
			b.WriteString("\n📅 ")
			b.WriteString(formatted)
		}
	}
	if ev.Location != "" {
		b.WriteString("\n🏠️ ")
		b.WriteString(ev.Location)
	}
	return b.String()
}

func link(ev feed.Event) string {
	if ev.URL == "" {
		return ""
	}
	return "\n🌍 " + ev.URL
}

// body truncates the description so teaser+body+link fit the limit. A
// description that fits is kept whole. When available space is negative
// the description is also kept whole: it will be excluded by variant
// selection rather than mangled here. Otherwise it is cut one rune short
// of the available space and a single ellipsis is appended.
func (c *Composer) body(description, teaser, link string) string {
	if description == "" {
		return ""
	}
	available := c.maxLength - runes(teaser) - runes(link)
	if runes(description) <= available || available < 0 {
		return description
	}
	return truncate(description, available-1) + "…"
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func runes(s string) int {
	return utf8.RuneCountInString(s)
}
