// Package jwt issues and verifies the short-lived pending-authentication
// tokens handed out between a password check and a TOTP check. Tokens carry
// only the subject user ID, a fixed purpose claim, and a unique ID used by the
// single-use ledger.
package jwt
