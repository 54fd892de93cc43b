package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Bangkok -> Chiang Mai is roughly 580 km
	assert.InDelta(t, 580, HaversineKm(13.7563, 100.5018, 18.7883, 98.9853), 15)
	assert.InDelta(t, 0, HaversineKm(1, 1, 1, 1), 1e-9)
	assert.InDelta(t, 20015, HaversineKm(0, 0, 0, 180), 1)
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	minLat, maxLat, minLng, maxLng := BoundingBox(13.75, 100.5, 10)
	assert.Less(t, minLat, 13.75)
	assert.Greater(t, maxLat, 13.75)
	// a point 9.9 km due east must be inside
	assert.Less(t, 100.5+9.9/(111.32*0.971), maxLng)
	assert.Greater(t, 100.5-9.9/(111.32*0.971), minLng)

	_, _, minLng, maxLng = BoundingBox(89.99, 0, 50)
	assert.Equal(t, -180.0, minLng)
	assert.Equal(t, 180.0, maxLng)

	_, _, minLng, maxLng = BoundingBox(0, 179.95, 20)
	assert.Equal(t, -180.0, minLng)
	assert.Equal(t, 180.0, maxLng)
}
