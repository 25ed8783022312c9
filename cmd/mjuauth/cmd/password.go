package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// passwordEnv holds the portal password for non-interactive use.
const passwordEnv = "MJU_PW"

var errNoPassword = errors.New("no password: set " + passwordEnv + " or run from a terminal")

// readPassword returns $MJU_PW, or prompts on the terminal with echo off.
func readPassword(prompt io.Writer) (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoPassword
	}
	fmt.Fprint(prompt, "Password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
