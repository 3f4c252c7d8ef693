package main

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/antonkrylov/mossctl/internal/moss"
)

// resolveUserID returns id, or asks for it without echo when stdin is a terminal.
func resolveUserID(id string) (string, error) {
	if id = strings.TrimSpace(id); id != "" {
		return id, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: user id is required (--user, config context or MOSS_USER_ID)", moss.ErrValidation)
	}
	fmt.Fprint(os.Stderr, "MOSS user id: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read user id: %w", err)
	}
	id = strings.TrimSpace(string(b))
	if id == "" {
		return "", fmt.Errorf("%w: user id is required", moss.ErrValidation)
	}
	return id, nil
}
