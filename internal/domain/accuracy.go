package domain

// Accuracy is a positional accuracy annotation attached to a coordinate operation.
type Accuracy string

// Accuracy annotations. An operation never carries both.
const (
	DatumShiftApplied Accuracy = "datum shift applied"
	DatumShiftOmitted Accuracy = "datum shift omitted"
)

// PositionalError returns a conservative estimate of the positional error in metres
// introduced by the annotated step.
func (a Accuracy) PositionalError() float64 {
	switch a {
	case DatumShiftApplied:
		return 25
	case DatumShiftOmitted:
		return 1000
	default:
		return 0
	}
}

// String returns the annotation text.
func (a Accuracy) String() string {
	return string(a)
}
