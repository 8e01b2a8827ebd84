package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &RefreshToken{ExpiresAt: now}

	assert.True(t, r.Expired(now))
	assert.True(t, r.Expired(now.Add(time.Second)))
	assert.False(t, r.Expired(now.Add(-time.Second)))
}
