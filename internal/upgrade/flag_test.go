// internal/upgrade/flag_test.go
package upgrade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlag(t *testing.T) {
	var f Flag
	assert.False(t, f.InProgress())

	assert.True(t, f.Begin())
	assert.False(t, f.Begin())
	assert.True(t, f.InProgress())

	f.End()
	assert.False(t, f.InProgress())
}
