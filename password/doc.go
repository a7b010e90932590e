// Package password implements password hashing and verification with bcrypt,
// matching the hashes already present in the platform's user table.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Credential policy and
// account lookup are enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other authkit package.
//   - Log plaintext passwords at runtime.
package password
