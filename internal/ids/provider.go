package ids

import "github.com/google/uuid"

// Provider issues unique document identifiers. UUIDv7 keeps identifier
// order aligned with creation order, which the collection queries use
// as the tie-break when two documents share a creation timestamp.
type Provider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs a Provider that issues UUIDv7 identifiers.
func NewUUIDProvider() Provider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}
