package ingestion

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExtractPlainText passes text through unchanged apart from encoding normalization:
// a UTF-8 or UTF-16 byte order mark selects the decoder, and bytes that are not
// valid UTF-8 are decoded as Windows-1252.
func ExtractPlainText(_ context.Context, data []byte) (string, error) {
	fallback := unicode.UTF8.NewDecoder()
	if !utf8.Valid(data) {
		fallback = charmap.Windows1252.NewDecoder()
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(out), nil
}
