package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/nullg/internal/ir"
)

// readInput returns the bytes of path, or of stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// readRawInput decodes a JSON document from path into a raw tree.
func readRawInput(cmd *cobra.Command, f *OutputFormatter, path string) (any, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		_ = f.Error(ErrCodeReadInput, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "read input", err)
	}
	raw, err := ir.DecodeRaw(data)
	if err != nil {
		_ = f.Error(ErrCodeReadInput, fmt.Sprintf("%s is not valid JSON: %v", displayName(path), err), nil)
		return nil, WrapExitError(ExitCommandError, "decode input", err)
	}
	return raw, nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}
