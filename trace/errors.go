package trace

import "fmt"

// FormatError reports a record that does not parse. Reading stops at the
// first one.
type FormatError struct {
	Line   int
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("trace line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// SourceError reports a trace that cannot be opened or read.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to read trace: %v", e.Err)
	}
	return fmt.Sprintf("failed to read trace %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
