package numeric

import (
	"time"

	"golang.org/x/text/language"
)

// Context is the compilation-scoped numeric configuration. It is immutable
// once created and shared read-only by every engine instance.
type Context struct {
	typ    Type
	locale language.Tag
	loc    *time.Location
	clock  func() time.Time
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLocale sets the locale used for case mapping and number parsing.
func WithLocale(tag language.Tag) ContextOption {
	return func(c *Context) { c.locale = tag }
}

// WithLocation sets the time zone used to convert host times to and from
// date serial numbers.
func WithLocation(loc *time.Location) ContextOption {
	return func(c *Context) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock sets the source of the current time for NOW and TODAY.
func WithClock(clock func() time.Time) ContextOption {
	return func(c *Context) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewContext creates a context for the numeric type t. The defaults are
// English, UTC and the system clock.
func NewContext(t Type, opts ...ContextOption) *Context {
	c := &Context{typ: t, locale: language.English, loc: time.UTC, clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the numeric representation.
func (c *Context) Type() Type { return c.typ }

// Locale returns the locale.
func (c *Context) Locale() language.Tag { return c.locale }

// Location returns the time zone.
func (c *Context) Location() *time.Location { return c.loc }

// Now returns the current time truncated to seconds.
func (c *Context) Now() time.Time { return c.clock().Truncate(time.Second) }
