// Package fleet builds the gitfo fleet commands: generate, status, fetch, pull, checkout, and sync.
//
// Each command resolves the control directory, loads the .gitfo file through fleet.ConfigStore,
// selects a profile, and hands the repositories to fleet.Runner. Results are rendered by
// report.Reporter once each profile completes.
package fleet
