package auth

import "time"

// SessionChoice is the lifetime a user picks after signing in.
type SessionChoice string

const (
	SessionOneDay  SessionChoice = "1day"
	Session60Days  SessionChoice = "60days"
	SessionForever SessionChoice = "always"
)

const (
	// DefaultSessionLifetime applies right after a code is redeemed, until
	// the user picks a choice.
	DefaultSessionLifetime = 24 * time.Hour

	foreverLifetime = 10 * 365 * 24 * time.Hour
)

var sessionLifetimes = map[SessionChoice]time.Duration{
	SessionOneDay:  24 * time.Hour,
	Session60Days:  60 * 24 * time.Hour,
	SessionForever: foreverLifetime,
}

// ParseSessionChoice reports whether s names a known choice.
func ParseSessionChoice(s string) (SessionChoice, bool) {
	c := SessionChoice(s)
	_, ok := sessionLifetimes[c]
	return c, ok
}

// ResolveDuration maps a choice to a cookie lifetime. Unknown values get the
// "always" lifetime; callers wanting to reject them use ParseSessionChoice.
func ResolveDuration(choice string) time.Duration {
	if d, ok := sessionLifetimes[SessionChoice(choice)]; ok {
		return d
	}
	return foreverLifetime
}
