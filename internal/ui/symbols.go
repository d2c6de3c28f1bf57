package ui

// Unicode symbols for status indicators.
const (
	SymbolFail     = "✗" // Step failed
	SymbolProgress = "◐" // Step in progress
	SymbolComplete = "●" // Step done
	SymbolSkipped  = "⊘" // Step had nothing to do
)
