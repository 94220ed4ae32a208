package cw

import "unicode"

// entry is an immutable (character, representation) pair. Representation is
// a string over {'.', '-'} of length 1..7, grounded on the MORSE table shape
// in doismellburning-samoyed's morse.go but extended per spec §3 with
// ISO-Latin accented letters and procedural signals.
type entry struct {
	ch  rune
	rep string
}

// table is the canonical character set. Its contents are an API-visible
// contract: this set does not grow or shrink across releases.
var table = []entry{
	{'A', ".-"}, {'B', "-..."}, {'C', "-.-."}, {'D', "-.."}, {'E', "."},
	{'F', "..-."}, {'G', "--."}, {'H', "...."}, {'I', ".."}, {'J', ".---"},
	{'K', "-.-"}, {'L', ".-.."}, {'M', "--"}, {'N', "-."}, {'O', "---"},
	{'P', ".--."}, {'Q', "--.-"}, {'R', ".-."}, {'S', "..."}, {'T', "-"},
	{'U', "..-"}, {'V', "...-"}, {'W', ".--"}, {'X', "-..-"}, {'Y', "-.--"},
	{'Z', "--.."},

	{'0', "-----"}, {'1', ".----"}, {'2', "..---"}, {'3', "...--"},
	{'4', "....-"}, {'5', "....."}, {'6', "-...."}, {'7', "--..."},
	{'8', "---.."}, {'9', "----."},

	{'.', ".-.-.-"}, {',', "--..--"}, {'?', "..--.."}, {'/', "-..-."},
	{'=', "-...-"}, {'-', "-....-"}, {')', "-.--.-"}, {'(', "-.--."},
	{':', "---..."}, {';', "-.-.-."}, {'"', ".-..-."}, {'\'', ".----."},
	{'$', "...-..-"}, {'!', "-.-.--"}, {'&', ".-..."}, {'+', ".-.-."},
	{'_', "..--.-"}, {'@', ".--.-."},

	// ISO-Latin accented letters.
	{'À', ".--.-"}, {'Á', ".--.-"}, {'Å', ".--.-"}, {'Ä', ".-.-"},
	{'È', ".-..-"}, {'É', "..-.."}, {'Ç', "-.-.."}, {'Ñ', "--.--"},
	{'Ö', "---."}, {'Ü', "..--"},

	// Procedural signals.
	{'<', "...-.-"},  // VA/SK (end of contact)
	{'>', ".-.-."},   // AR (end of message)
	{'^', "-...-.-"}, // BK (break)
}

// proceduralEntry maps a procedural character to its spoken-out expansion.
type proceduralEntry struct {
	ch         rune
	expansion  string
	usuallyExp bool
}

var proceduralTable = []proceduralEntry{
	{'<', "VA", true},
	{'>', "AR", true},
	{'^', "BK", true},
}

const maxRepLen = 7

// repHash implements the hash from spec §3: start with sentinel bit 1 and,
// left to right, shift left and OR 1 for a dash, 0 for a dot. Representations
// longer than maxRepLen or containing anything but '.'/'-' hash to 0.
func repHash(rep string) int {
	if len(rep) == 0 || len(rep) > maxRepLen {
		return 0
	}
	hash := 1
	for _, r := range rep {
		switch r {
		case '.':
			hash <<= 1
		case '-':
			hash = (hash << 1) | 1
		default:
			return 0
		}
	}
	return hash
}

// maxHash is the largest value repHash can produce for a maxRepLen-element
// representation: sentinel bit followed by maxRepLen one-bits.
const maxHash = (1 << (maxRepLen + 1)) - 1

var (
	charToRep    map[rune]string
	repHashToChr [maxHash + 1]rune
	repHashValid [maxHash + 1]bool
	proceduralMap map[rune]proceduralEntry
)

func init() {
	charToRep = make(map[rune]string, len(table))
	for _, e := range table {
		charToRep[e.ch] = e.rep
		h := repHash(e.rep)
		if h != 0 && !repHashValid[h] {
			repHashToChr[h] = e.ch
			repHashValid[h] = true
		}
	}
	proceduralMap = make(map[rune]proceduralEntry, len(proceduralTable))
	for _, p := range proceduralTable {
		proceduralMap[p.ch] = p
	}
}

// CharacterToRepresentation returns the representation for c, coercing
// lower-case letters to upper case first, and ok=false if c is unknown.
func CharacterToRepresentation(c rune) (string, bool) {
	if unicode.IsLower(c) {
		c = unicode.ToUpper(c)
	}
	rep, ok := charToRep[c]
	return rep, ok
}

// RepresentationToCharacter reverse-looks-up a representation via the §3
// hash table, falling back to a linear scan if the hash table doesn't have
// a complete picture (it always does here, since init populates it fully,
// but the fallback keeps the contract spec §4.2 describes). Returns
// ErrBadArgument if rep contains anything but '.'/'-', ErrNotFound if it is
// well-formed but unknown.
func RepresentationToCharacter(rep string) (rune, error) {
	for _, r := range rep {
		if r != '.' && r != '-' {
			return 0, ErrBadArgument
		}
	}
	h := repHash(rep)
	if h != 0 && repHashValid[h] {
		return repHashToChr[h], nil
	}
	// Fallback linear scan (hash collision or table incompleteness guard).
	for _, e := range table {
		if e.rep == rep {
			return e.ch, nil
		}
	}
	return 0, ErrNotFound
}

// ProceduralExpansion returns the spoken-out text for a procedural character
// (e.g. '<' -> "VA") and whether it is usually sent expanded.
func ProceduralExpansion(c rune) (expansion string, usuallyExpanded bool, ok bool) {
	p, ok := proceduralMap[c]
	return p.expansion, p.usuallyExp, ok
}

// RepresentationHash exposes the §3 hash function for callers (e.g. tests)
// that need it directly.
func RepresentationHash(rep string) int { return repHash(rep) }
