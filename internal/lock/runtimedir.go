package lock

import (
	"fmt"
	"os"
)

// RuntimeDir resolves the per-user runtime directory the lock file and
// control socket live under. It is a fatal error if XDG_RUNTIME_DIR is
// unset, matching the original daemon's behavior.
func RuntimeDir() (string, error) {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", fmt.Errorf("lock: XDG_RUNTIME_DIR is not set")
	}
	return dir, nil
}
</content>
