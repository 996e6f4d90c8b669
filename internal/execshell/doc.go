// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and lifecycle
// observers, OSCommandRunner executes processes through os/exec, and
// CommandMessageFormatter renders git invocations as readable sentences.
// gitfo routes every git call through this package so repository services
// can be exercised with recording runners in tests.
package execshell
