package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func noArgs(command string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("%s takes no arguments", command)
		}
		return nil
	}
}

func exactArgs(count int, message string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != count {
			return errors.New(message)
		}
		return nil
	}
}

// uploadSources accepts paths, or a lone - for stdin.
func uploadSources(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("at least one path or - is required")
	}
	for _, arg := range args {
		if strings.TrimSpace(arg) == "" {
			return errors.New("paths must not be empty")
		}
		if arg == stdinArg && len(args) > 1 {
			return errors.New("- reads stdin and cannot be combined with paths")
		}
	}
	return nil
}

// attachmentIDs requires one or more distinct record ids.
func attachmentIDs(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return errors.New("attachment id is required")
	}
	seen := make(map[string]struct{}, len(args))
	for _, id := range args {
		if strings.TrimSpace(id) == "" {
			return errors.New("attachment id must not be empty")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("attachment id %s given twice", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func isStdinUpload(args []string) bool {
	return len(args) == 1 && args[0] == stdinArg
}
