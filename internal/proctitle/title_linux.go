//go:build linux

package proctitle

import (
	"os"

	"github.com/rs/zerolog/log"
)

// Set writes the title to /proc/self/comm, truncated to the kernel's
// 15-byte TASK_COMM_LEN-1 limit. Failures are logged and ignored: a
// process title is cosmetic, never load-bearing.
func Set(title string) {
	if len(title) > 15 {
		title = title[:15]
	}
	if err := os.WriteFile("/proc/self/comm", []byte(title), 0); err != nil {
		log.Debug().Err(err).Msg("proctitle: failed to set process title")
	}
}
