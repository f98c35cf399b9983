package loginguard

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Mail providers whose addresses ignore dots in the local part and accept
// plus-suffixed aliases.
var dotInsensitiveDomains = map[string]string{
	"gmail.com":      "gmail.com",
	"googlemail.com": "gmail.com",
}

// NormalizeEmail lowercases email and, for providers that treat them as
// equivalent, removes dots and any "+suffix" from the local part. Input
// without exactly one '@' is returned trimmed and lowercased.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return email
	}

	local, domain := email[:at], email[at+1:]
	canonical, ok := dotInsensitiveDomains[domain]
	if !ok {
		return email
	}

	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	local = strings.ReplaceAll(local, ".", "")
	if local == "" {
		return email
	}
	return local + "@" + canonical
}

// NormalizeHandle is the username form passed to UserProvider.FindByUsername.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// resolveIdentity maps a submitted handle to an account. A handle containing
// '@' is tried as an email first and then as a username. found is false when
// nothing matched; err is reserved for provider faults.
func (e *Engine) resolveIdentity(ctx context.Context, handle string) (user UserRecord, found bool, err error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return UserRecord{}, false, nil
	}

	if strings.Contains(handle, "@") {
		user, err = e.userProvider.FindByEmail(ctx, NormalizeEmail(handle))
		switch {
		case err == nil:
			return user, true, nil
		case !errors.Is(err, ErrUserNotFound):
			return UserRecord{}, false, fmt.Errorf("%w: %v", ErrUserProviderUnavailable, err)
		}
	}

	user, err = e.userProvider.FindByUsername(ctx, NormalizeHandle(handle))
	switch {
	case err == nil:
		return user, true, nil
	case errors.Is(err, ErrUserNotFound):
		return UserRecord{}, false, nil
	default:
		return UserRecord{}, false, fmt.Errorf("%w: %v", ErrUserProviderUnavailable, err)
	}
}
