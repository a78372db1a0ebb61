// Package input provides helpers for reading flag values from files or
// stdin ("-" syntax).
package input

import (
	"fmt"
	"io"
	"os"
)

// ReadDocument reads the contents of a file path, or stdin when the
// path is "-". Used by flags that accept a JSON document.
func ReadDocument(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}
