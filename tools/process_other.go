//go:build !unix

package tools

import "os/exec"

// killProcessGroup keeps the default cancellation, which kills only the
// direct child.
func killProcessGroup(_ *exec.Cmd) {}

func reapProcessGroup(_ *exec.Cmd) {}
