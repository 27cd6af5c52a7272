package models

// StatusLabel is the human-facing state of a bin derived from its two flags.
type StatusLabel string

const (
	LabelUncollectedFull  StatusLabel = "uncollected-full"
	LabelCollectedNotFull StatusLabel = "collected-not-full"
	LabelFull             StatusLabel = "full"
)

// LabelFor maps a bin's flags onto one of the three labels.
// Status only matters while the bin is not full.
func LabelFor(b BinStat) StatusLabel {
	switch {
	case b.Empty && !b.Status:
		return LabelUncollectedFull
	case b.Empty && b.Status:
		return LabelCollectedNotFull
	default:
		return LabelFull
	}
}

// Text returns the English popup text for the label.
func (l StatusLabel) Text() string {
	switch l {
	case LabelUncollectedFull:
		return "bin not yet full (not yet collected)"
	case LabelCollectedNotFull:
		return "not yet full (already collected)"
	default:
		return "bin full"
	}
}

// LocalText returns the Thai text shown on the municipal display.
func (l StatusLabel) LocalText() string {
	switch l {
	case LabelUncollectedFull:
		return "ถังยังไม่เต็ม (ยังไม่ถูกเก็บ)"
	case LabelCollectedNotFull:
		return "ยังไม่เต็ม (ถูกเก็บแล้ว)"
	default:
		return "ถังขยะเต็ม"
	}
}

// Color is the text colour class used for the label ("red" or "green").
func (l StatusLabel) Color() string {
	if l == LabelCollectedNotFull {
		return "green"
	}
	return "red"
}
