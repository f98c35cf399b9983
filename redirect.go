package loginguard

import "strings"

// IsSafeRedirect reports whether target may be used as a post-login redirect.
//
// Protocol-relative targets ("//host", and the "/\host", "\\host" variants
// browsers treat the same way) are refused. Browsers drop leading whitespace
// and embedded tab, CR, and LF before resolving, so those are removed before
// the check. Absolute URLs with a scheme are left to upstream filtering.
func IsSafeRedirect(target string) bool {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\r', '\n':
			return -1
		}
		return r
	}, target)
	cleaned = strings.TrimLeft(cleaned, " \f\v\x00")

	if len(cleaned) < 2 {
		return true
	}
	return !(isSlash(cleaned[0]) && isSlash(cleaned[1]))
}

func isSlash(b byte) bool {
	return b == '/' || b == '\\'
}

// redirectTarget returns the location to send the client to, or false when
// the requested target is unsafe.
func (e *Engine) redirectTarget(requested string) (string, bool) {
	if !IsSafeRedirect(requested) {
		return "", false
	}
	if strings.TrimSpace(requested) == "" {
		return e.config.Redirect.Default, true
	}
	return requested, true
}

// ValidateRedirect is IsSafeRedirect in error form for callers that validate
// redirect parameters outside the login flow.
func ValidateRedirect(target string) error {
	if !IsSafeRedirect(target) {
		return ErrUnsafeRedirect
	}
	return nil
}
