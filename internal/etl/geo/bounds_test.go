package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestAxisRanges(t *testing.T) {
	assert.True(t, XInRange(-79.5))
	assert.True(t, XInRange(500000))
	assert.True(t, XInRange(800000))
	assert.False(t, XInRange(-83))
	assert.False(t, XInRange(450000))

	assert.True(t, YInRange(-2.1))
	assert.True(t, YInRange(9800000))
	assert.False(t, YInRange(3))
	assert.False(t, YInRange(10200000))
}

func TestSRID(t *testing.T) {
	assert.Equal(t, SRIDWGS84, SRID(-79.9, -2.2))
	assert.Equal(t, SRIDUTM17S, SRID(620000, 9760000))
	assert.Equal(t, 0, SRID(-79.9, 9760000))
	assert.Equal(t, 0, SRID(0, 0))
}

func TestEncodePoint(t *testing.T) {
	data, srid, err := EncodePoint(500000, 9800000)
	require.NoError(t, err)
	assert.Equal(t, SRIDUTM17S, srid)

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	p, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, SRIDUTM17S, p.SRID())
	assert.InDelta(t, 500000, p.X(), 0.0001)
	assert.InDelta(t, 9800000, p.Y(), 0.0001)
}

func TestEncodePoint_Outside(t *testing.T) {
	_, _, err := EncodePoint(1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside plausible region")
}
