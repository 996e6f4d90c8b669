// Package ui renders git command lifecycle events for people reading a terminal.
package ui
