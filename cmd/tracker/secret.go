package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nhle/company-tasks/internal/credential"
)

func runSecret(args []string, out io.Writer) error {
	if len(args) == 0 || args[0] != "set" {
		return errors.New("usage: tracker secret set [--generate | <value>]")
	}
	fs := newFlagSet("secret set")
	generate := fs.Bool("generate", false, "generate a random secret instead of taking one")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	e, err := loadEnv(fs)
	if err != nil {
		return err
	}

	value, err := secretValue(*generate, fs.Args())
	if err != nil {
		return err
	}

	vault, err := credential.Open(filepath.Dir(e.path))
	if err != nil {
		return err
	}
	if err := vault.Set(credential.SigningSecretKey, value); err != nil {
		return err
	}
	fmt.Fprintln(out, "signing secret stored in keyring")
	return nil
}

func secretValue(generate bool, rest []string) (string, error) {
	switch {
	case generate && len(rest) > 0:
		return "", errors.New("pass either --generate or a value, not both")
	case generate:
		return credential.GenerateSecret()
	case len(rest) == 1 && strings.TrimSpace(rest[0]) != "":
		return strings.TrimSpace(rest[0]), nil
	default:
		return "", errors.New("a secret value or --generate is required")
	}
}
