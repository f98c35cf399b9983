package loginguard

import (
	"net/netip"
	"strings"
	"time"
)

// TrustPolicy decides whether ip is a recognized source for user. The engine
// consults it only for privileged or long-inactive accounts.
type TrustPolicy interface {
	IsTrustedSource(user UserRecord, ip string, now time.Time) bool
}

// TrustPolicyFunc adapts a function to TrustPolicy.
type TrustPolicyFunc func(user UserRecord, ip string, now time.Time) bool

func (f TrustPolicyFunc) IsTrustedSource(user UserRecord, ip string, now time.Time) bool {
	return f(user, ip, now)
}

// lastIPTrustPolicy trusts the account's last recorded login IP and any
// address inside the configured prefixes.
type lastIPTrustPolicy struct {
	prefixes []netip.Prefix
}

func newLastIPTrustPolicy(cidrs []string) (*lastIPTrustPolicy, error) {
	p := &lastIPTrustPolicy{}
	for _, c := range cidrs {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(c))
		if err != nil {
			return nil, err
		}
		p.prefixes = append(p.prefixes, prefix.Masked())
	}
	return p, nil
}

func (p *lastIPTrustPolicy) IsTrustedSource(user UserRecord, ip string, _ time.Time) bool {
	if ip == "" {
		return false
	}
	if user.LastLoginIP != "" && sameAddr(user.LastLoginIP, ip) {
		return true
	}
	if len(p.prefixes) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range p.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func sameAddr(a, b string) bool {
	if a == b {
		return true
	}
	pa, errA := netip.ParseAddr(a)
	pb, errB := netip.ParseAddr(b)
	return errA == nil && errB == nil && pa.Unmap() == pb.Unmap()
}

// accountRejection is the reason an account may not log in, or "" when it may.
func (e *Engine) accountRejection(user UserRecord, ip string, now time.Time) string {
	switch {
	case user.Deleted:
		return "account_deleted"
	case !user.Active:
		return "account_inactive"
	}

	privileged := user.Tier >= e.config.Trust.PrivilegedTier
	stale := !user.LastLoginAt.IsZero() && now.Sub(user.LastLoginAt) > e.config.Trust.InactiveAfter
	if (privileged || stale) && !e.trust.IsTrustedSource(user, ip, now) {
		if privileged {
			return "untrusted_source_privileged"
		}
		return "untrusted_source_dormant"
	}
	return ""
}
