//go:build !windows

// Service management only exists on Windows. On every other platform the
// backend runs in the foreground and these entry points report nothing to do.
package main

import "context"

// RunAsService reports that service mode is unavailable here. The run
// function is never invoked; main falls through to foreground startup.
func RunAsService(run func(ctx context.Context) error) (bool, error) {
	return false, nil
}

// HandleServiceCommand reports that no service command applies on this
// platform.
func HandleServiceCommand(args []string) bool {
	return false
}
