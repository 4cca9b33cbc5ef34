package datagrid

import (
	"math"
	"strconv"
)

// ValueKind enumerates the closed set of cell value kinds.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindText
	KindJSON
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindNumber:
		return "Number"
	case KindText:
		return "Text"
	case KindJSON:
		return "JSON"
	}
	return "Invalid(" + strconv.Itoa(int(k)) + ")"
}

// CellValue is the dynamically typed value of a single grid cell,
// implemented as a closed sum over Null, Bool, Number, Text, and JSON
// so that formatting and parsing can switch exhaustively over kinds
// instead of doing runtime type tests.
//
// The zero value of CellValue is Null.
// CellValue is comparable and can be used as a map key.
type CellValue struct {
	kind ValueKind
	b    bool
	num  float64
	str  string // text for KindText, raw JSON text for KindJSON
}

// Null returns the null cell value.
func Null() CellValue {
	return CellValue{}
}

// Bool returns a boolean cell value.
func Bool(b bool) CellValue {
	return CellValue{kind: KindBool, b: b}
}

// Number returns a numeric cell value.
func Number(f float64) CellValue {
	return CellValue{kind: KindNumber, num: f}
}

// Int returns a numeric cell value for an integer.
func Int(i int64) CellValue {
	return CellValue{kind: KindNumber, num: float64(i)}
}

// Text returns a textual cell value.
func Text(s string) CellValue {
	return CellValue{kind: KindText, str: s}
}

// JSON returns a cell value holding opaque structured data
// already rendered as JSON text.
func JSON(raw string) CellValue {
	return CellValue{kind: KindJSON, str: raw}
}

// Kind returns the kind of the value.
func (v CellValue) Kind() ValueKind { return v.kind }

// IsNull reports if the value is null.
func (v CellValue) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload, false for any other kind.
func (v CellValue) Bool() bool { return v.kind == KindBool && v.b }

// Number returns the numeric payload, 0 for any other kind.
func (v CellValue) Number() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.num
}

// Text returns the text payload of a Text or JSON value,
// "" for any other kind.
func (v CellValue) Text() string {
	if v.kind != KindText && v.kind != KindJSON {
		return ""
	}
	return v.str
}

// String converts the value to its plain string form:
// "" for null, "true"/"false" for booleans, the shortest
// round-trippable decimal form for numbers, and the text
// payload for Text and JSON values.
//
// Note that null and the empty string convert identically,
// distinguishing them is the caller's job via IsNull.
func (v CellValue) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	default:
		return v.str
	}
}

// Driver returns the value in a form suitable for passing
// as an argument to database drivers: nil, bool, float64, or string.
func (v CellValue) Driver() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	default:
		return v.str
	}
}

// Equal reports if two values have the same kind and payload.
func (v CellValue) Equal(other CellValue) bool {
	return v == other
}

// IsNullOrEmpty reports if the value is null or an empty string.
// Insert operations skip such columns entirely.
func (v CellValue) IsNullOrEmpty() bool {
	return v.kind == KindNull || (v.kind == KindText && v.str == "")
}
