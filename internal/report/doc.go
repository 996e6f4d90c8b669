// Package report renders fleet reports and action outcomes for the terminal.
package report
