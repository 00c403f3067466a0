package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/italics/internal/classification"
)

// SetResult is the JSON payload of commands that report the current set.
type SetResult struct {
	Classifications []string `json:"classifications"`
	Changed         bool     `json:"changed"`
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// writeSet prints set as one name per line, or as a JSON response.
func writeSet(w io.Writer, format string, set classification.Set, changed bool) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(CLIResponse{
			Status: "ok",
			Data:   SetResult{Classifications: set.Names(), Changed: changed},
		})
	}
	for _, name := range set.Names() {
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}
	}
	return nil
}
