//go:build !windows

package main

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// processAlive reports whether the pid refers to a live process
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// stopServer sends SIGTERM and waits briefly for the process to exit
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
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	for i := 0; i < 60; i++ {
		if !processAlive(pid) {
			cmd.Printf("overcast stopped (pid %d)\n", pid)
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("process %d did not exit within 30s", pid)
}
