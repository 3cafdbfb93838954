package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// input is one named source of messages.
type input struct {
	name string
	open func() (io.ReadCloser, error)
	err  error
}

// expandInputs resolves "-" to stdin and expands glob patterns.
func expandInputs(args []string) []input {
	var inputs []input
	for _, arg := range args {
		if arg == "-" {
			inputs = append(inputs, input{
				name: "stdin",
				open: func() (io.ReadCloser, error) { return io.NopCloser(os.Stdin), nil },
			})
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			inputs = append(inputs, input{name: arg, err: fmt.Errorf("pattern '%s': %w", arg, err)})
			continue
		}
		if len(matches) == 0 {
			inputs = append(inputs, input{name: arg, err: fmt.Errorf("no files match pattern: %s", arg)})
			continue
		}
		for _, path := range matches {
			inputs = append(inputs, input{
				name: path,
				open: func() (io.ReadCloser, error) { return os.Open(path) },
			})
		}
	}
	return inputs
}
