package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForPath asks on stdin for a file path. Returns def if the user
// enters nothing.
func PromptForPath(label, def string) string {
	return PromptForPathFrom(os.Stdin, os.Stdout, label, def)
}

// PromptForPathFrom is PromptForPath over explicit streams.
func PromptForPathFrom(in io.Reader, out io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		log.Warn().Err(err).Msg("Failed to read input, using default")
		return def
	}

	input = strings.Trim(strings.TrimSpace(input), `"'`)
	if input == "" {
		return def
	}
	return input
}
