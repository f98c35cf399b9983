// Package password verifies stored password hashes.
//
// # Output format
//
// New hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Stored bcrypt hashes ($2a$, $2b$, $2y$) are accepted by [Verifier] so
// account stores migrated from older systems keep working.
// [Verifier.NeedsUpgrade] reports hashes that should be re-hashed after the
// next successful login. [Verifier.VerifyDummy] burns the same work as a real
// check for logins that never reach a stored hash.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other loginguard package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
