package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrMissingTenant)

	_, err = FromContext(WithTenant(context.Background(), "   "))
	assert.ErrorIs(t, err, ErrMissingTenant)

	id, err := FromContext(WithTenant(context.Background(), " t-1 "))
	require.NoError(t, err)
	assert.Equal(t, "t-1", id)
}
