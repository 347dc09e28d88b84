//go:build windows

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// processAlive reports whether the pid refers to a live process
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	defer process.Release() //nolint:errcheck
	return true
}

// stopServer kills the process; Windows has no SIGTERM equivalent here
func stopServer(cmd *cobra.Command, pidPath string) error {
	pid, err := readPID(pidPath)
	if err != nil {
		cmd.Println("overcast is not running")
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("cannot find process %d: %w", pid, err)
	}
	if err := process.Kill(); err != nil {
		return fmt.Errorf("failed to stop process %d: %w", pid, err)
	}
	cmd.Printf("overcast stopped (pid %d)\n", pid)
	return nil
}
