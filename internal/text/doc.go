// Package text normalizes inbound message text for dumb terminals using a
// fixed Latin-diacritic fallback table.
package text
