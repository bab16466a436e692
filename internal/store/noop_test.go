package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopStore(t *testing.T) {
	var s Store = Noop{}
	ctx := context.Background()
	assert.NoError(t, s.SaveDiagnosis(ctx, nil))
	_, err := s.GetDiagnosis(ctx, "x")
	assert.ErrorIs(t, err, ErrNotFound)
	counts, err := s.SeverityCounts(ctx)
	assert.NoError(t, err)
	assert.Empty(t, counts)
	assert.False(t, s.Enabled())
	assert.NoError(t, s.Close())
}
