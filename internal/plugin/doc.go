// Package plugin hosts a set of command modules behind one front end.
//
// Ownership boundary:
// - command registry and dispatcher
//
// - localized replies to senders
//
// - optional database and option table handles
//
// Lifecycle order:
// - New -> Enable(modules) -> OnCommand... -> Disable
//
// - Enable runs module startups in order against a staging registry, then
//   seals it and makes it live. A failed startup discards the staging registry.
//
// - Disable refuses further commands, runs module shutdowns in reverse order
//   and clears the registry.
//
// The host never interprets arguments. Modules own command semantics.
package plugin
