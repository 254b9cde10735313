package ledger

import (
	"strings"

	"scratchguard/pkg/log"
)

// Prune removes duplicate lines sharing a leading identity token, keeping
// the first occurrence and preserving relative order. Duplicates arise
// when two processes race to create the same identity's line. Comparison
// is on the raw leading token, without case or whitespace normalization.
// Caller must hold the exclusive lock. Returns the number of lines
// dropped.
func (l *Ledger) Prune() (int, error) {
	lines, err := l.readLines()
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(lines))
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		kept = append(kept, line)
	}

	removed := len(lines) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := l.writeLines(kept); err != nil {
		return 0, err
	}
	log.Info().Int("removed", removed).Str("ledger", l.path).
		Msg("Pruned duplicate ledger lines")
	return removed, nil
}
