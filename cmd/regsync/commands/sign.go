package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/regsync/internal/signature"
)

// SignCmd implements the 'sign' command: print the signature an operation
// document would be published under.
type SignCmd struct {
	File string `arg:"" help:"Path to the operation document (- for stdin)"`
}

func (s *SignCmd) Run(_ *Global, _ *CLI) error {
	var (
		data []byte
		err  error
	)
	if s.File == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(s.File)
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	fmt.Println(signature.Hash(string(data)))
	return nil
}
