// Package translit provides a pure, table-driven Devanagari-to-Roman
// transliterator. It is the safety net described in Design Notes: the LLM
// is instructed to emit Roman script only, but customer/product names
// occasionally arrive with residual Devanagari characters, and this
// package normalizes them deterministically before any matching or
// display logic runs.
package translit

import "strings"

// syllableTable maps common Devanagari independent vowels, consonants, and
// vowel signs to their Hinglish-phonetic Roman equivalents. It is not a
// complete ISO 15919 transliteration scheme — it covers the syllables that
// occur in Indian personal names and shop vocabulary, which is the only
// surface this system needs to normalize.
var syllableTable = map[rune]string{
	'अ': "a", 'आ': "aa", 'इ': "i", 'ई': "ee", 'उ': "u", 'ऊ': "oo",
	'ए': "e", 'ऐ': "ai", 'ओ': "o", 'औ': "au",
	'क': "k", 'ख': "kh", 'ग': "g", 'घ': "gh", 'ङ': "ng",
	'च': "ch", 'छ': "chh", 'ज': "j", 'झ': "jh", 'ञ': "ny",
	'ट': "t", 'ठ': "th", 'ड': "d", 'ढ': "dh", 'ण': "n",
	'त': "t", 'थ': "th", 'द': "d", 'ध': "dh", 'न': "n",
	'प': "p", 'फ': "ph", 'ब': "b", 'भ': "bh", 'म': "m",
	'य': "y", 'र': "r", 'ल': "l", 'व': "v",
	'श': "sh", 'ष': "sh", 'स': "s", 'ह': "h",
	'ळ': "l",
	// Conjuncts such as क्ष are consonant + virama + consonant sequences,
	// not single runes, so they are rendered from their parts (क्ष gives
	// "ksh").
	// Vowel signs (matras) — applied after a consonant, replacing the
	// inherent "a".
	'ा': "aa", 'ि': "i", 'ी': "ee", 'ु': "u", 'ू': "oo",
	'े': "e", 'ै': "ai", 'ो': "o", 'ौ': "au",
	'ं': "n", 'ः': "h", '़': "",
}

// virama (halant) suppresses the inherent vowel of the preceding consonant.
const virama = '्'

// HasDevanagari reports whether s contains any character in the Devanagari
// Unicode block (U+0900–U+097F).
func HasDevanagari(s string) bool {
	for _, r := range s {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

// ToRoman transliterates any Devanagari runs within s into Roman-script
// phonetic approximations, leaving non-Devanagari characters untouched.
// It is pure and synchronous with no external dependency, matching the
// "safety net" role described for this component: the common case is that
// s contains no Devanagari at all and ToRoman is a no-op copy.
func ToRoman(s string) string {
	if !HasDevanagari(s) {
		return s
	}

	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r < 0x0900 || r > 0x097F {
			b.WriteRune(r)
			continue
		}

		// Suppressed inherent vowel: consonant immediately followed by
		// virama drops the trailing "a" that the table's consonant entries
		// imply by convention (handled by callers treating consonants as
		// bare sounds; here we simply skip the virama itself).
		if r == virama {
			continue
		}

		if roman, ok := syllableTable[r]; ok {
			b.WriteString(roman)
			continue
		}

		// Unknown Devanagari codepoint (rare conjunct or archaic glyph):
		// drop it rather than emit mojibake into a customer-facing field.
	}
	return b.String()
}
