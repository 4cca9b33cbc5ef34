package datagrid

import "strings"

// Option is a bitmask of engine behavior flags.
type Option int

const (
	// OptionKeepPristineEdits keeps edits in the ledger even when the
	// new value equals the pristine one. By default such edits are
	// elided so the diff stays free of no-op writes.
	OptionKeepPristineEdits Option = 1 << iota

	// OptionReadOnly disables editing, deletion, insertion, paste,
	// and save. The row number gutter is omitted from pinned offsets.
	OptionReadOnly
)

func (o Option) Has(option Option) bool {
	return o&option != 0
}

func (o Option) String() string {
	var b strings.Builder
	if o.Has(OptionKeepPristineEdits) {
		b.WriteString("KeepPristineEdits")
	}
	if o.Has(OptionReadOnly) {
		if b.Len() > 0 {
			b.WriteString("|")
		}
		b.WriteString("ReadOnly")
	}
	if b.Len() == 0 {
		return "no Option"
	}
	return b.String()
}
