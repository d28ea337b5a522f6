package app

import (
	"strings"

	"github.com/google/uuid"
)

const referencePrefix = "NST-"

func newUUID() string {
	return uuid.NewString()
}

// newReference returns a payment reference the gateway can echo back.
func newReference() string {
	return referencePrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// isUUID separates booking ids from payment references on lookups that
// accept either.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
