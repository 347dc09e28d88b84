package interfaces

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-uuid"
)

// NewID generates a prefixed unique identifier, e.g. "infra-3f2c...".
// It falls back to a timestamp-based id if the random source fails.
func NewID(prefix string) string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, id)
}
