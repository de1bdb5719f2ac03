package hal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashrelay/hal"
)

func TestPartitionWindowsOffsets(t *testing.T) {
	dev, err := hal.NewMemFlash(16*4096, 4096)
	require.NoError(t, err)

	part, err := hal.NewPartition(dev, 4*4096, 8*4096)
	require.NoError(t, err)
	assert.Equal(t, uint32(8*4096), part.SizeBytes())
	assert.Equal(t, uint32(4096), part.EraseBlockBytes())

	// A write at partition offset 0 lands at device offset 4*4096.
	_, err = part.WriteAt([]byte{0x12}, 0)
	require.NoError(t, err)

	got := make([]byte, 1)
	_, err = dev.ReadAt(got, 4*4096)
	require.NoError(t, err)
	assert.Equal(t, byte(0x12), got[0])

	// And is visible through the partition at the same window offset.
	_, err = part.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x12), got[0])
}

func TestPartitionBounds(t *testing.T) {
	dev, err := hal.NewMemFlash(16*4096, 4096)
	require.NoError(t, err)

	part, err := hal.NewPartition(dev, 0, 4*4096)
	require.NoError(t, err)

	_, err = part.ReadAt(make([]byte, 8), 4*4096-4)
	assert.Error(t, err, "read crossing window end")
	assert.Error(t, part.Erase(4*4096, 4096), "erase past window")
	assert.NoError(t, part.Erase(3*4096, 4096))
}

func TestNewPartitionValidation(t *testing.T) {
	dev, err := hal.NewMemFlash(16*4096, 4096)
	require.NoError(t, err)

	_, err = hal.NewPartition(nil, 0, 4096)
	assert.Error(t, err)
	_, err = hal.NewPartition(dev, 100, 4096)
	assert.Error(t, err, "unaligned offset")
	_, err = hal.NewPartition(dev, 0, 100)
	assert.Error(t, err, "unaligned size")
	_, err = hal.NewPartition(dev, 8*4096, 16*4096)
	assert.Error(t, err, "window past device end")
	_, err = hal.NewPartition(dev, 0, 0)
	assert.Error(t, err, "empty window")
}
