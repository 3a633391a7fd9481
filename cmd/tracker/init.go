package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nhle/company-tasks/internal/model"
)

func runInit(args []string, out io.Writer) error {
	fs := newFlagSet("init")
	force := fs.Bool("force", false, "overwrite an existing config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := loadEnv(fs)
	if err != nil {
		return err
	}

	if _, err := os.Stat(e.path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", e.path)
	}
	if err := model.SaveConfig(e.path, e.cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", e.path)
	return nil
}
