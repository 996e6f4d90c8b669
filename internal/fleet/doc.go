// Package fleet models a fleet of git checkouts grouped into named profiles.
//
// ConfigStore loads and generates the .gitfo file, ResolveProfile selects a
// profile, Materialize binds its entries to local paths, Inspector computes
// each repository's status, and Runner applies fetch, pull, checkout, and
// sync across the fleet with bounded parallelism. BuildReport turns the
// inspected repositories into rows for rendering.
package fleet
