package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxRequestSize caps page request files; larger files are rejected unread.
const MaxRequestSize = 32 << 20

const headerSize = 4 * 1024

// validateRequestFile checks that path is a regular file of acceptable size whose
// header looks like a JSON object rather than binary data.
func validateRequestFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > MaxRequestSize {
		return fmt.Errorf("%s is %d bytes, over the %d byte limit", path, info.Size(), MaxRequestSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("failed to read header: %w", err)
	}
	header = header[:n]

	if isBinaryData(header) {
		return errors.New("file appears to be binary")
	}
	trimmed := bytes.TrimLeft(header, " \t\r\n\ufeff")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("%s does not hold a JSON object", path)
	}
	return nil
}

// isBinaryData reports whether more than 30% of data is control characters other
// than tab, newline and carriage return.
func isBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	nonPrintable := 0
	for _, b := range data {
		if b < 9 || (b > 13 && b < 32) || b == 127 {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(data)) > 0.3
}
