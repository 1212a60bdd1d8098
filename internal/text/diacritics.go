// ABOUTME: Pure UTF-8 to ASCII fallback for console-bound message text.
// ABOUTME: Maps Czech diacritics to base letters and drops everything else non-ASCII.

package text

// diacriticTable maps two-byte UTF-8 sequences to their ASCII base letter.
// Covers the Czech alphabet; anything else multi-byte is dropped.
var diacriticTable = map[[2]byte]byte{
	{0xC3, 0xA1}: 'a', // á
	{0xC3, 0xA9}: 'e', // é
	{0xC3, 0xAD}: 'i', // í
	{0xC3, 0xB3}: 'o', // ó
	{0xC3, 0xBA}: 'u', // ú
	{0xC3, 0xBD}: 'y', // ý
	{0xC3, 0x81}: 'A', // Á
	{0xC3, 0x89}: 'E', // É
	{0xC3, 0x8D}: 'I', // Í
	{0xC3, 0x93}: 'O', // Ó
	{0xC3, 0x9A}: 'U', // Ú
	{0xC3, 0x9D}: 'Y', // Ý
	{0xC4, 0x8D}: 'c', // č
	{0xC4, 0x8F}: 'd', // ď
	{0xC4, 0x9B}: 'e', // ě
	{0xC4, 0x8C}: 'C', // Č
	{0xC4, 0x8E}: 'D', // Ď
	{0xC4, 0x9A}: 'E', // Ě
	{0xC5, 0x88}: 'n', // ň
	{0xC5, 0x99}: 'r', // ř
	{0xC5, 0xA1}: 's', // š
	{0xC5, 0xA5}: 't', // ť
	{0xC5, 0xAF}: 'u', // ů
	{0xC5, 0xBE}: 'z', // ž
	{0xC5, 0x87}: 'N', // Ň
	{0xC5, 0x98}: 'R', // Ř
	{0xC5, 0xA0}: 'S', // Š
	{0xC5, 0xA4}: 'T', // Ť
	{0xC5, 0xAE}: 'U', // Ů
	{0xC5, 0xBD}: 'Z', // Ž
}

// RemoveDiacritics returns s with Czech diacritics replaced by their ASCII
// base letters. Other non-ASCII sequences (emojis, CJK, invalid bytes) are
// removed entirely. The input is never modified.
func RemoveDiacritics(s string) string {
	out := make([]byte, 0, len(s))
	b := []byte(s)
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80: // plain ASCII
			out = append(out, c)
			i++
		case c >= 0xC0 && c <= 0xDF: // 2-byte sequence
			if i+1 < len(b) {
				if ascii, ok := diacriticTable[[2]byte{c, b[i+1]}]; ok {
					out = append(out, ascii)
				}
				i += 2
			} else {
				i++
			}
		case c >= 0xE0 && c <= 0xEF: // 3-byte sequence, dropped
			i += 3
		case c >= 0xF0 && c <= 0xF7: // 4-byte sequence, dropped
			i += 4
		default: // stray continuation or invalid byte
			i++
		}
	}
	return string(out)
}
