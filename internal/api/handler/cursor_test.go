package handler

import (
	"testing"
	"time"

	"github.com/cuongbtq/launchloop/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobCursor(t *testing.T) {
	in := &storage.JobCursor{
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 123456000, time.UTC),
		JobID:     "0192f0c4-7a6e-7cc2-9a49-3e5c6d1f2a10",
	}

	out, err := DecodeJobCursor(EncodeJobCursor(in))
	require.NoError(t, err)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Equal(t, in.JobID, out.JobID)

	empty, err := DecodeJobCursor("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	tests := []string{"%%%", "bm9waXBl", "YWJjfGlk"}
	for _, raw := range tests {
		_, err := DecodeJobCursor(raw)
		assert.Error(t, err, raw)
	}
}
