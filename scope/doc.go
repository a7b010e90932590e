// Package scope maps platform roles to capability scope sets and evaluates
// scope checks for the authorization gate.
//
// The role set is closed: every role known to the platform is declared here
// with its fixed scope set, and unknown or absent roles resolve to the
// baseline authenticated-user set. The wildcard scope "*" grants
// unconditional access and short-circuits all checks.
//
// # What this package must NOT do
//
//   - Perform I/O or consult external stores; the catalog is compile-time data.
//   - Expose mutable scope sets; ScopesFor always returns a fresh copy.
package scope
