package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyResult_Ok(t *testing.T) {
	r := Ok()
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())
}

func TestApplyResult_Failed(t *testing.T) {
	r := Failed("filter %q already exists", "objects without system-name")
	assert.False(t, r.OK())
	assert.Equal(t, ApplyFailed, r.Status)

	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `filter "objects without system-name" already exists`)
}
