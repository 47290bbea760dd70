// Package command owns command registration and resolution.
//
// Ownership boundary:
// - command definitions and their argument shape
//
// - matching strategies (static, variable, dynamic)
//
// - ordered registry and the resolving dispatcher
//
// Lifecycle order:
// - build (Register/Add) -> seal -> resolve
//
// - resolve may run against an unsealed registry; mutation after Seal fails.
//
// Registration order is the resolution precedence. The first Matched
// definition wins; an arity failure is only reported when no later
// definition matches.
//
// Command does not own execution policy. Console eligibility, permission
// denial and user-facing messages belong to the host that consumes a
// Resolution.
package command
