package seed

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// PromptPassword asks for the shared sample password without echo. An empty
// answer selects DefaultPassword.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func PromptPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprintf(w, "Password for sample users (empty for %q): ", DefaultPassword); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return []byte(DefaultPassword), nil
	}
	return pw, nil
}
