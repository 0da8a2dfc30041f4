package submission

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/heartmarshall/sprachduell-bot/internal/domain"
)

// Entry is one parsed "number + translation" line.
type Entry struct {
	Seq  int
	Text string
}

// entryRe accepts "3. text", "3) text" and "3 text".
var entryRe = regexp.MustCompile(`^(\d+)[.)]?\s+(\S.*)$`)

// ParseEntries parses a submission body of one or more "<n>. <translation>"
// lines. Blank lines are skipped; a non-blank line that doesn't parse makes
// the whole body invalid, because silently dropping a user's translation is
// worse than asking them to resend.
func ParseEntries(body string) ([]Entry, error) {
	var entries []Entry

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m := entryRe.FindStringSubmatch(line)
		if m == nil {
			return nil, domain.NewValidationError("entry",
				`use the format "<number>. <translation>", one per line`)
		}

		seq, err := strconv.Atoi(m[1])
		if err != nil || seq < 1 {
			return nil, domain.NewValidationError("entry", "sentence number must be a positive integer")
		}

		entries = append(entries, Entry{Seq: seq, Text: strings.TrimSpace(m[2])})
	}

	if len(entries) == 0 {
		return nil, domain.NewValidationError("entry", "no translation entries found")
	}

	return entries, nil
}
