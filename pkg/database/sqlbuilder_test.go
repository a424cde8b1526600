package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertBuilder_OnConflictDoNothing(t *testing.T) {
	query, args := NewInsertBuilder().
		InsertInto("facilities").
		Cols("id", "name").
		Values("fac-1", "Happy Paws").
		OnConflictDoNothing().
		Build()

	assert.Contains(t, query, "INSERT INTO facilities (id, name)")
	assert.Contains(t, query, "VALUES ($1, $2)")
	assert.Contains(t, query, "ON CONFLICT DO NOTHING")
	assert.Equal(t, []interface{}{"fac-1", "Happy Paws"}, args)
}
