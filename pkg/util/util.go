package util

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUID returns a time-ordered UUID (v7), falling back to v4 if the
// clock source fails.
func GenerateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// GenerateShortUUID returns a UUID without dashes.
func GenerateShortUUID() string {
	return strings.ReplaceAll(GenerateUUID(), "-", "")
}

// GenerateNotificationID returns the id for a new notification row.
func GenerateNotificationID() string {
	return GenerateUUID()
}

// GenerateAnnouncementID returns the id for a new announcement row.
func GenerateAnnouncementID() string {
	return "A" + GenerateShortUUID()
}
