package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var errNoInput = errors.New("no input: use -text, -file or pipe text on stdin")

// stdinIsTerminal is swapped in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readInput picks -text, then -file, then piped stdin. Interactive stdin is
// never read so a bare command fails fast instead of hanging.
func readInput(text, file string, stdin io.Reader, upper bool) (string, error) {
	var out string
	switch {
	case text != "" && file != "":
		return "", errors.New("use either -text or -file")
	case text != "":
		out = text
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		out = string(data)
	default:
		if stdinIsTerminal() {
			return "", errNoInput
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		out = string(data)
	}

	out = strings.TrimRight(out, "\r\n")
	if upper {
		out = strings.ToUpper(out)
	}
	return out, nil
}
