package dialogue

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Intent is a recognized scheduling intention in a free-form message.
type Intent string

const (
	IntentNone       Intent = ""
	IntentSchedule   Intent = "schedule"
	IntentReschedule Intent = "reschedule"
	IntentCancel     Intent = "cancel"
)

// The extraction functions below are pure: same text in, same value out, no
// I/O, and a zero value (never a panic) on a miss. The pattern set is the
// bounded pt-BR vocabulary the engine was trained on; false negatives are
// expected and recovered by re-prompting, not by widening the patterns.

var (
	rescheduleWords = []string{"remarcar", "reagendar", "adiar"}
	cancelWords     = []string{"cancelar", "desmarcar", "cancelamento"}
	scheduleWords   = []string{"agendar", "marcar", "agendamento"}

	confirmWords   = []string{"sim", "confirmar", "confirmo", "confirma", "ok", "claro", "isso", "perfeito", "fechado"}
	confirmPhrases = []string{"pode ser", "pode confirmar", "ta bom", "tudo bem"}
	denyWords      = []string{"nao", "negativo", "nem"}
	denyPhrases    = []string{"outro horario", "nao pode", "nao da", "melhor nao"}

	// Bounded service-category vocabulary (accent-folded).
	serviceWords = []string{"consulta", "avaliacao", "retorno", "sessao", "exame", "limpeza", "manutencao", "revisao"}

	foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	slashDateRe  = regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)
	dayOfMonthRe = regexp.MustCompile(`\bdia\s+(\d{1,2})\b`)
	hourMarkRe   = regexp.MustCompile(`\b(\d{1,2})h([0-5]\d)?\b`)
	colonTimeRe  = regexp.MustCompile(`\b(\d{1,2}):([0-5]\d)\b`)
	personRe     = regexp.MustCompile(`\bcom\s+(?:[oa]s?\s+)?([\pL]{2,})`)
)

// Fold lowercases text and strips combining accent marks, so that "Não" and
// "nao" compare equal. Used by every matcher in this package and by the
// directory resolver.
func Fold(text string) string {
	out, _, err := transform.String(foldTransformer, strings.ToLower(text))
	if err != nil {
		return strings.ToLower(text)
	}
	return out
}

func containsWord(text, word string) bool {
	for _, tok := range strings.Fields(text) {
		if strings.Trim(tok, ".,!?;:") == word {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// DetectIntent classifies a message. Checks run in fixed priority order
// reschedule, cancel, schedule: "remarcar" contains "marcar", so reschedule
// must win before the schedule vocabulary is consulted.
func DetectIntent(text string) Intent {
	folded := Fold(text)
	switch {
	case containsAny(folded, rescheduleWords):
		return IntentReschedule
	case containsAny(folded, cancelWords):
		return IntentCancel
	case containsAny(folded, scheduleWords):
		return IntentSchedule
	}
	return IntentNone
}

// IsConfirmation reports whether the message reads as a yes. Independent of
// IsDenial; the engine checks confirmation first.
func IsConfirmation(text string) bool {
	folded := Fold(text)
	for _, p := range confirmPhrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	for _, w := range confirmWords {
		if containsWord(folded, w) {
			return true
		}
	}
	return false
}

// IsDenial reports whether the message reads as a no.
func IsDenial(text string) bool {
	folded := Fold(text)
	for _, p := range denyPhrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	for _, w := range denyWords {
		if containsWord(folded, w) {
			return true
		}
	}
	return false
}

// ExtractDate pulls a calendar date out of the message. Two shapes are
// recognized: "dd/mm" or "dd/mm/yyyy" (a missing year defaults to now's
// year, a two-digit year is expanded by prefixing "20"), and "dia <n>"
// (combined with now's month and year). The slash form wins when both
// appear. Returns an ISO date ("2006-01-02") or "".
func ExtractDate(text string, now time.Time) string {
	folded := Fold(text)

	if m := slashDateRe.FindStringSubmatch(folded); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			y, _ := strconv.Atoi(m[3])
			if len(m[3]) == 2 {
				y += 2000
			}
			year = y
		}
		if day >= 1 && day <= 31 && month >= 1 && month <= 12 {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		}
	}

	if m := dayOfMonthRe.FindStringSubmatch(folded); m != nil {
		day, _ := strconv.Atoi(m[1])
		if day >= 1 && day <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", now.Year(), int(now.Month()), day)
		}
	}

	return ""
}

// ExtractTime pulls a wall-clock time out of the message. "14h30" and "14h"
// (minutes default to 00) are checked before "14:30". Returns zero-padded
// "HH:MM" or "".
func ExtractTime(text string) string {
	folded := Fold(text)

	if m := hourMarkRe.FindStringSubmatch(folded); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour <= 23 {
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}

	if m := colonTimeRe.FindStringSubmatch(folded); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour <= 23 {
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}

	return ""
}

// ExtractPersonHint returns the word following "com" ("with"), the raw hint
// handed to the directory resolver. A leading article ("a"/"o"/"as"/"os") is
// skipped, so "com a Maria" yields "maria", and the hint must be at least two
// letters long. Returns "" when the pattern is absent.
func ExtractPersonHint(text string) string {
	if m := personRe.FindStringSubmatch(strings.ToLower(text)); m != nil {
		return m[1]
	}
	return ""
}

// ExtractServiceHint returns the first service-category word found in the
// message, or "".
func ExtractServiceHint(text string) string {
	folded := Fold(text)
	for _, w := range serviceWords {
		if containsWord(folded, w) {
			return w
		}
	}
	return ""
}

// ToUTC combines an ISO date and an "HH:MM" time interpreted in a fixed UTC
// offset into an absolute instant. The offset is static configuration, not
// DST-aware; see the config package for the rationale.
func ToUTC(dateISO, hhmm string, tzOffsetMinutes int) (time.Time, error) {
	d, err := time.Parse("2006-01-02", dateISO)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", dateISO, err)
	}
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	loc := time.FixedZone("local", tzOffsetMinutes*60)
	local := time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	return local.UTC(), nil
}
