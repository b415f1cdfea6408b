package types

// FieldState tags how a single listing field was obtained.
type FieldState uint8

const (
	// FieldNotShown means the page had no element for the field.
	FieldNotShown FieldState = iota
	// FieldPresent means the value was extracted. A zero value is a real zero.
	FieldPresent
	// FieldFailed means the element existed but its text could not be parsed.
	FieldFailed
)

func (s FieldState) String() string {
	switch s {
	case FieldPresent:
		return "present"
	case FieldNotShown:
		return "not_shown"
	case FieldFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Field is an extracted value together with its extraction state.
type Field[T any] struct {
	Value T
	State FieldState
}

// Present returns a field holding v.
func Present[T any](v T) Field[T] {
	return Field[T]{Value: v, State: FieldPresent}
}

// NotShown returns an absent field.
func NotShown[T any]() Field[T] {
	return Field[T]{State: FieldNotShown}
}

// Failed returns a field whose element could not be parsed.
func Failed[T any]() Field[T] {
	return Field[T]{State: FieldFailed}
}

// Ok reports whether the field holds an extracted value.
func (f Field[T]) Ok() bool { return f.State == FieldPresent }

// Get returns the value and whether it is present.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.State == FieldPresent
}

// Ptr returns a pointer to the value, or nil when it is not present.
func (f Field[T]) Ptr() *T {
	if f.State != FieldPresent {
		return nil
	}
	v := f.Value
	return &v
}
