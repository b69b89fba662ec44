//go:build windows

package adapters

import "os/exec"

// configureProcessGroup keeps the exec default on Windows, which kills the
// direct child only.
func configureProcessGroup(cmd *exec.Cmd) {}
