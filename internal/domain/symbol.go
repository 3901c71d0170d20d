package domain

import "strings"

// SymbolTable collapses broker-suffixed instrument variants (XAUUSDc, GOLD, …)
// to their canonical symbol. Lookups that miss fall back to the default
// instrument, matching the terminals' single-instrument expectation.
type SymbolTable struct {
	aliases       map[string]string
	defaultSymbol string
}

// NewSymbolTable builds a table from an alias map. Keys are matched
// case-insensitively.
func NewSymbolTable(aliases map[string]string, defaultSymbol string) *SymbolTable {
	normalized := make(map[string]string, len(aliases))
	for alias, canonical := range aliases {
		normalized[strings.ToUpper(alias)] = canonical
	}
	return &SymbolTable{aliases: normalized, defaultSymbol: defaultSymbol}
}

// Normalize maps a raw symbol to its canonical form. Empty or unknown symbols
// resolve to the default instrument.
func (t *SymbolTable) Normalize(symbol string) string {
	if canonical, ok := t.aliases[strings.ToUpper(symbol)]; ok {
		return canonical
	}
	return t.defaultSymbol
}

// Default returns the canonical default instrument.
func (t *SymbolTable) Default() string {
	return t.defaultSymbol
}
