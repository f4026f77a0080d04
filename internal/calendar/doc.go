// Package calendar integrates meetings with external calendars.
//
// Google Calendar access is per user: each call builds a client from the
// user's stored OAuth tokens and persists refreshed tokens back through a
// TokenStore. A user without linked tokens yields ErrNotLinked, which callers
// treat as a normal, skippable case.
//
// EncodeICS renders a confirmed meeting as an RFC 5545 calendar object.
package calendar
