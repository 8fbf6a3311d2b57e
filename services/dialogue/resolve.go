package dialogue

import (
	"strings"
	"unicode/utf8"

	"agendly/models"
)

// directoryEntry is the common shape the resolver matches against.
type directoryEntry struct {
	name    string
	aliases []string
}

// resolveEntry matches a raw text hint against directory entries. Matching
// order: exact canonical name, exact alias, then prefix on name or alias.
// All comparisons are case- and accent-insensitive. The first entry in
// iteration order wins ties. The prefix rule needs at least two runes: a
// single stray letter (a leftover article, a typo) must not pull in whichever
// entry happens to start with it. Returns "" when the hint is empty or
// nothing matches.
func resolveEntry(hint string, entries []directoryEntry) string {
	hint = Fold(strings.TrimSpace(hint))
	if hint == "" {
		return ""
	}

	for _, e := range entries {
		if Fold(e.name) == hint {
			return e.name
		}
	}
	for _, e := range entries {
		for _, a := range e.aliases {
			if Fold(a) == hint {
				return e.name
			}
		}
	}
	if utf8.RuneCountInString(hint) >= 2 {
		for _, e := range entries {
			if strings.HasPrefix(Fold(e.name), hint) {
				return e.name
			}
			for _, a := range e.aliases {
				if strings.HasPrefix(Fold(a), hint) {
					return e.name
				}
			}
		}
	}
	return ""
}

// ResolvePerson maps a person hint to the canonical directory name, or "".
func ResolvePerson(hint string, people []models.ResolvedPerson) string {
	entries := make([]directoryEntry, len(people))
	for i, p := range people {
		entries[i] = directoryEntry{name: p.Name, aliases: p.Aliases}
	}
	return resolveEntry(hint, entries)
}

// ResolveService maps a service hint to the canonical directory name, or "".
func ResolveService(hint string, services []models.ResolvedService) string {
	entries := make([]directoryEntry, len(services))
	for i, s := range services {
		entries[i] = directoryEntry{name: s.Name, aliases: s.Aliases}
	}
	return resolveEntry(hint, entries)
}
