// Package ui prints one status line per report step.
//
// Output goes to a cron mail as often as to a terminal, so colors are only
// used when the writer is a terminal:
//
//	● Memory and CPU alerts 1.2s
//	● Node status 0.8s
//	✗ Personal update 10.0s
//
// Symbols:
//
//	SymbolProgress (half-fill)  - step running (terminals only)
//	SymbolComplete (filled)     - step done
//	SymbolFail     (X)          - step failed
//	SymbolSkipped  (slashed)    - nothing to post
package ui
