package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("scenario")
	assert.Equal(t, "scenario-0001", gen.Generate())
	assert.Equal(t, "scenario-0002", gen.Generate())
}

func TestSequentialIDGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequentialIDGenerator("")
	assert.Equal(t, "req-0001", gen.Generate())
}
