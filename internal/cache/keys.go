package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RunStatusKey(runID uuid.UUID) string {
	return fmt.Sprintf("caseflow:run:%s", runID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("caseflow:ratelimit:%s", keyPrefix)
}
