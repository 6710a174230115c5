package services

import "github.com/google/uuid"

// IDGenerator generates unique identifiers
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator hands out random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUID generator
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate creates a unique identifier
func (g *UUIDGenerator) Generate() string {
	return uuid.NewString()
}
