package importer

import "bytes"

// Dialect is the delimiter convention of a delimited-text file.
type Dialect struct {
	Delimiter        rune
	SkipInitialSpace bool
}

// sniffSize is how much of the file the dialect is inferred from.
const sniffSize = 1024

// candidateDelimiters are tried in order of preference.
var candidateDelimiters = []byte{',', '\t', ';', '|'}

// SniffDialect infers the dialect from the leading bytes of data. The chosen
// delimiter is the one that appears the same number of times (outside quotes)
// on the most sample lines; ties go to the earlier candidate. Comma is the
// fallback for single-column input.
func SniffDialect(data []byte) Dialect {
	sample := data
	truncated := len(sample) > sniffSize
	if truncated {
		sample = sample[:sniffSize]
	}
	lines := bytes.Split(bytes.ReplaceAll(sample, []byte("\r\n"), []byte("\n")), []byte("\n"))
	if truncated && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}

	best := Dialect{Delimiter: ','}
	bestScore := 0
	for _, delim := range candidateDelimiters {
		score, spaced := delimiterScore(lines, delim)
		if score > bestScore {
			best = Dialect{Delimiter: rune(delim), SkipInitialSpace: spaced}
			bestScore = score
		}
	}
	return best
}

// delimiterScore returns how many lines share the most common nonzero count of
// delim, and whether every occurrence is followed by a space.
func delimiterScore(lines [][]byte, delim byte) (int, bool) {
	freq := make(map[int]int)
	total, spaced := 0, 0
	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		n, s := countUnquoted(line, delim)
		total += n
		spaced += s
		if n > 0 {
			freq[n]++
		}
	}

	score := 0
	for _, lines := range freq {
		if lines > score {
			score = lines
		}
	}
	return score, total > 0 && spaced == total
}

// countUnquoted counts delim outside double quotes, and how many of those are followed by a space.
func countUnquoted(line []byte, delim byte) (int, int) {
	n, spaced := 0, 0
	quoted := false
	for i, c := range line {
		switch {
		case c == '"':
			quoted = !quoted
		case c == delim && !quoted:
			n++
			if i+1 < len(line) && line[i+1] == ' ' {
				spaced++
			}
		}
	}
	return n, spaced
}
