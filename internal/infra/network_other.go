//go:build !linux && !darwin && !windows

package infra

import "context"

func defaultInterfaces(context.Context) ([]string, error) {
	return nil, ErrUnsupportedPlatform
}

func interfaceCommand(string, bool) []string { return nil }

func resolverFlushCommands() [][]string { return nil }
