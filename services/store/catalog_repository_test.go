package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	// Arrange
	duplicate := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "categories_name_key"}
	wrapped := fmt.Errorf("falha ao criar categoria: %w", duplicate)
	otherPgErr := &pgconn.PgError{Code: "23503"}

	// Assert
	assert.True(t, uniqueViolation(duplicate))
	assert.True(t, uniqueViolation(wrapped))
	assert.False(t, uniqueViolation(otherPgErr))
	assert.False(t, uniqueViolation(errors.New("connection refused")))
	assert.False(t, uniqueViolation(nil))
}
