package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisteredGroups(t *testing.T) {
	assert.Equal(t, []string{"ops", "requests"}, Names())
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() { Register("ops", registerOps) })
}
