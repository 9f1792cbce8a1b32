// Package commands implementa los subcomandos de afipctl.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// IOTuple entrada y salida de los comandos; permite capturarlas en tests.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO usa os.Stdin y os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("escribir salida: %w", err)
	}
	return nil
}
