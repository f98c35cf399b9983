// Package ipban evaluates IP bans before any credential is looked at.
//
// A ban has a category. Full bans block and count every blocked attempt;
// partial bans are recorded for administrators but never block and never
// count. Deleted bans are ignored entirely.
//
// Bans are created and deleted by an external administration surface; this
// package only reads them and maintains hit statistics through [Store].
package ipban
