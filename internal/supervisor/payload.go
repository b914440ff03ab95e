package supervisor

import (
	"fmt"
	"strconv"
)

// parseIndexPayload parses the ":index" suffix BOOT and FORK messages
// carry (pid:index).
func parseIndexPayload(payload string) (int, error) {
	idx, err := strconv.Atoi(payload)
	if err != nil {
		return 0, fmt.Errorf("supervisor: expected integer index, got %q: %w", payload, err)
	}
	return idx, nil
}
