package storage

import (
	"context"
	"testing"

	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExperimentStore(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	store := NewExperimentStore(newTestDB(t), discardLogger(), WithClock(clock.Now))

	variants := []domain.Variant{
		{ID: "A", Headline: "Old"},
		{ID: "B", Headline: "New"},
	}
	first, err := store.Create(ctx, "p1", domain.ExperimentHeadlineHero, variants)
	require.NoError(t, err)
	second, err := store.Create(ctx, "p1", domain.ExperimentHeadlineHero, variants)
	require.NoError(t, err)

	list, err := store.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, variants, list[0].Variants)
	assert.Nil(t, list[0].EndAt)
	assert.Empty(t, list[0].Winner)

	list, err = store.ListByProject(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, list)
}
