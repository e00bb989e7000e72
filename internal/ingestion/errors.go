package ingestion

import "fmt"

// ExtractionError reports that document bytes could not be converted to text
type ExtractionError struct {
	Format Format
	Name   string
	Cause  error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to extract text from %s document %q: %v", e.Format, e.Name, e.Cause)
	}
	return fmt.Sprintf("failed to extract text from %s document %q", e.Format, e.Name)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// UnsupportedFormatError reports a document whose type is not one of the accepted formats
type UnsupportedFormatError struct {
	MIMEType string
	Name     string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %q (%s)", e.Name, e.MIMEType)
}
