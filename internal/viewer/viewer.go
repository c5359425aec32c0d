// Package viewer starts an external image viewer on DICOM files.
package viewer

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

// DefaultCommand is the viewer used when none is configured.
const DefaultCommand = "giv"

// Config holds the viewer command line. Command is split with shell
// quoting rules, so it may carry arguments: `giv --fit` or
// `"/opt/My Viewer/bin/view" -m`.
type Config struct {
	Command string
}

// Split parses a viewer command line into program and arguments.
func Split(command string) ([]string, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse viewer command %q: %w", command, err)
	}
	if len(words) == 0 {
		return nil, errors.New("empty viewer command")
	}
	return words, nil
}

// Command builds the process that opens paths, without starting it.
func Command(cfg Config, paths []string) (*exec.Cmd, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files to view")
	}
	command := cfg.Command
	if command == "" {
		command = DefaultCommand
	}
	words, err := Split(command)
	if err != nil {
		return nil, err
	}
	args := append(words[1:], paths...)
	return exec.Command(words[0], args...), nil
}

// Launch starts the viewer on paths and returns without waiting for it.
// The viewer's output is not captured.
func Launch(cfg Config, paths []string) error {
	cmd, err := Command(cfg, paths)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start viewer: %w", err)
	}
	return cmd.Process.Release()
}
