package launcher

import (
	"errors"
	"io/fs"
	"os/exec"
	"syscall"

	"github.com/fractic-io/envcfg/internal/cli"
)

// Exec replaces the current process with the target command.
// This function does not return on success - the current process is replaced.
// On failure, it returns an error.
//
// Error handling:
//   - Command not found: returns error (caller should exit 127)
//   - Permission denied: returns error (caller should exit 126)
//   - Other execve failures: returns error (caller should exit 1)
func Exec(cmd cli.Command, environ []string) error {
	execPath, err := exec.LookPath(cmd.Target)
	if err != nil {
		return err
	}

	argv := append([]string{cmd.Target}, cmd.Args...)
	return syscall.Exec(execPath, argv, environ)
}

// IsNotFound checks if the error indicates the command was not found
func IsNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

// IsPermissionDenied checks if the error indicates permission was denied
func IsPermissionDenied(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
