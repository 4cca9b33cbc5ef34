package datagrid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TypeClass is the coarse value classification derived from a
// column's declared SQL type, controlling how the codec formats
// and parses cell values.
type TypeClass uint8

const (
	ClassPlain TypeClass = iota
	ClassDate
	ClassDateTime
	ClassTime
)

func (c TypeClass) String() string {
	switch c {
	case ClassPlain:
		return "Plain"
	case ClassDate:
		return "Date"
	case ClassDateTime:
		return "DateTime"
	case ClassTime:
		return "Time"
	}
	return "Invalid(" + strconv.Itoa(int(c)) + ")"
}

// ClassifyType classifies a declared column type by case-insensitive
// substring match: "datetime" or "timestamp" win over "date",
// and "time" only matches the bare type or a precision form like "time(3)"
// so that "timestamp" is not misread as a time.
func ClassifyType(declaredType string) TypeClass {
	t := strings.ToLower(strings.TrimSpace(declaredType))
	switch {
	case strings.Contains(t, "datetime"), strings.Contains(t, "timestamp"):
		return ClassDateTime
	case strings.Contains(t, "date"):
		return ClassDate
	case t == "time", strings.HasPrefix(t, "time("):
		return ClassTime
	}
	return ClassPlain
}

var (
	// Stored or canonical display forms: YYYY-MM-DD or YYYY/MM/DD,
	// optionally followed by a space or T separated time.
	storedDateTimeRegexp = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})(?:[ T](\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?$`)
	storedTimeRegexp     = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?$`)

	// Human-entered date forms.
	cjkDateRegexp       = regexp.MustCompile(`^(\d{4})年(\d{1,2})月(\d{1,2})日?$`)
	compactDateRegexp   = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	separatedDateRegexp = regexp.MustCompile(`^(\d{1,4})[/\-.](\d{1,2})[/\-.](\d{1,4})$`)
	compactTimeRegexp   = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})?$`)

	dateTimeSplitRegexp = regexp.MustCompile(`[\sT]+`)
)

// FormatValue converts a cell value into its canonical display string.
//
// Null formats as the empty string (the host renders the NULL marker,
// not the codec). Date, datetime, and time values stored as
// YYYY-MM-DD[ T]HH:MM[:SS] are reformatted to YYYY/MM/DD[ HH:MM:SS]
// respectively HH:MM:SS, with missing seconds defaulting to "00".
// Values that do not match the expected pattern pass through unchanged.
func FormatValue(v CellValue, class TypeClass) string {
	if v.IsNull() {
		return ""
	}
	if class == ClassPlain || v.Kind() == KindJSON {
		return v.String()
	}
	str := v.String()
	switch class {
	case ClassDate, ClassDateTime:
		m := storedDateTimeRegexp.FindStringSubmatch(str)
		if m == nil {
			return str
		}
		date := m[1] + "/" + pad2(m[2]) + "/" + pad2(m[3])
		if class == ClassDate || m[4] == "" {
			return date
		}
		return date + " " + pad2(m[4]) + ":" + pad2(m[5]) + ":" + pad2OrZero(m[6])
	case ClassTime:
		m := storedTimeRegexp.FindStringSubmatch(str)
		if m == nil {
			return str
		}
		return pad2(m[1]) + ":" + pad2(m[2]) + ":" + pad2OrZero(m[3])
	}
	return str
}

// ParseUserInput converts text typed into a cell editor to the value
// recorded in the change ledger.
//
// Empty or whitespace-only input becomes Null. Plain cells keep the
// trimmed text verbatim. Date, datetime, and time cells accept "/",
// "-", ".", and 年/月/日 separators, compact digit forms (YYYYMMDD,
// HHMMSS, HHMM), and ambiguous MM/DD/YYYY vs DD/MM/YYYY ordering
// (a first group above 12 is treated as the day), all normalized to
// the canonical YYYY/MM/DD[ HH:MM:SS] or HH:MM:SS display form.
//
// Parsing is best-effort: input that cannot be normalized is returned
// unchanged as text so the user sees what they typed. The backing
// store, not this codec, is the final authority on validity.
func ParseUserInput(text string, class TypeClass) CellValue {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Null()
	}
	switch class {
	case ClassDate, ClassDateTime:
		if norm, ok := normalizeDateInput(trimmed, class == ClassDateTime); ok {
			return Text(norm)
		}
	case ClassTime:
		if norm, ok := normalizeTimeInput(trimmed); ok {
			return Text(norm)
		}
	default:
		return Text(trimmed)
	}
	return Text(text)
}

// StorageFormat converts a canonical display string back to the wire
// form the persistence layer expects: "-" date separators, a space
// between date and time, and seconds padded as ":00". The inverse of
// FormatValue for the editor round trip. Non-canonical input passes
// through unchanged.
func StorageFormat(display string, class TypeClass) string {
	switch class {
	case ClassDate, ClassDateTime:
		m := storedDateTimeRegexp.FindStringSubmatch(display)
		if m == nil {
			return display
		}
		date := m[1] + "-" + pad2(m[2]) + "-" + pad2(m[3])
		if class == ClassDate || m[4] == "" {
			return date
		}
		return date + " " + pad2(m[4]) + ":" + pad2(m[5]) + ":" + pad2OrZero(m[6])
	case ClassTime:
		m := storedTimeRegexp.FindStringSubmatch(display)
		if m == nil {
			return display
		}
		return pad2(m[1]) + ":" + pad2(m[2]) + ":" + pad2OrZero(m[3])
	}
	return display
}

func normalizeDateInput(input string, withTime bool) (string, bool) {
	parts := dateTimeSplitRegexp.Split(input, 2)
	year, month, day, ok := parseDatePart(parts[0])
	if !ok {
		return "", false
	}
	date := fmt.Sprintf("%04d/%02d/%02d", year, month, day)
	if !withTime || len(parts) < 2 {
		return date, true
	}
	timeStr, ok := normalizeTimeInput(parts[1])
	if !ok {
		return "", false
	}
	return date + " " + timeStr, true
}

func parseDatePart(str string) (year, month, day int, ok bool) {
	if m := cjkDateRegexp.FindStringSubmatch(str); m != nil {
		return validDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := compactDateRegexp.FindStringSubmatch(str); m != nil {
		return validDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	m := separatedDateRegexp.FindStringSubmatch(str)
	if m == nil {
		return 0, 0, 0, false
	}
	a, b, c := m[1], m[2], m[3]
	switch {
	case len(a) == 4:
		// YYYY/MM/DD
		return validDate(atoi(a), atoi(b), atoi(c))
	case len(c) == 4:
		// MM/DD/YYYY or DD/MM/YYYY, disambiguated heuristically:
		// a first group above 12 can only be a day.
		if atoi(a) > 12 {
			return validDate(atoi(c), atoi(b), atoi(a))
		}
		return validDate(atoi(c), atoi(a), atoi(b))
	}
	return 0, 0, 0, false
}

func validDate(year, month, day int) (int, int, int, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

func normalizeTimeInput(str string) (string, bool) {
	var hour, minute, second int
	switch {
	case storedTimeRegexp.MatchString(str):
		m := storedTimeRegexp.FindStringSubmatch(str)
		hour, minute, second = atoi(m[1]), atoi(m[2]), atoi(m[3])
	case compactTimeRegexp.MatchString(str):
		m := compactTimeRegexp.FindStringSubmatch(str)
		hour, minute, second = atoi(m[1]), atoi(m[2]), atoi(m[3])
	default:
		return "", false
	}
	if hour > 23 || minute > 59 || second > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second), true
}

func atoi(str string) int {
	i, _ := strconv.Atoi(str)
	return i
}

func pad2(str string) string {
	if len(str) == 1 {
		return "0" + str
	}
	return str
}

func pad2OrZero(str string) string {
	if str == "" {
		return "00"
	}
	return pad2(str)
}
