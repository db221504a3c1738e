package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForPath asks for a path on w and reads the answer from r. An empty
// answer returns def.
func PromptForPath(r io.Reader, w io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}

	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && input == "" {
		log.Warn().Err(err).Msg("Failed to read input, using default")
		return def
	}
	if input = strings.TrimSpace(input); input == "" {
		return def
	}
	return input
}

// PromptConfirm asks a yes/no question. Only an answer starting with y or Y
// confirms.
func PromptConfirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	input, _ := bufio.NewReader(r).ReadString('\n')
	input = strings.TrimSpace(input)
	return input != "" && (input[0] == 'y' || input[0] == 'Y')
}
