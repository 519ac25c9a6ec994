package ledger

// separator.go picks the field delimiter of an uploaded file.

import "bytes"

// candidateSeparators is ordered by preference. A tie on the count goes to the
// earlier entry.
var candidateSeparators = []rune{',', ';', '\t'}

// DetectSeparator inspects only the first line of data and returns whichever
// of comma, semicolon or tab occurs most often there. An empty buffer, or a
// first line containing none of them, yields comma.
func DetectSeparator(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := candidateSeparators[0], 0
	for _, sep := range candidateSeparators {
		if n := bytes.Count(line, []byte(string(sep))); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// SeparatorName returns a readable label for the separators DetectSeparator
// can return.
func SeparatorName(sep rune) string {
	switch sep {
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	default:
		return "comma"
	}
}
