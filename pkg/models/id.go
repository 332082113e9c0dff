package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID generates a time-ordered identifier with the given prefix,
// e.g. "task_20060102_150405_1a2b3c4d". The timestamp component keeps IDs
// sortable by creation time; the random suffix keeps them globally unique.
func NewID(prefix string) string {
	u := uuid.New()
	return fmt.Sprintf("%s_%s_%x", prefix, time.Now().Format("20060102_150405"), u[:4])
}

// NewShortID generates a compact identifier with the given prefix,
// e.g. "agent_1a2b3c4d".
func NewShortID(prefix string) string {
	u := uuid.New()
	return fmt.Sprintf("%s_%x", prefix, u[:4])
}
