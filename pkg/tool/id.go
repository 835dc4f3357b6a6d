package tool

import "github.com/google/uuid"

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsUUID reports whether s parses as a UUID. Path ids are checked with it
// before they reach a uuid column.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
