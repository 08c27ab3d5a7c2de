package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_BelowThresholdNeverFires(t *testing.T) {
	fired := 0
	d := NewDetector(200, func() { fired++ })

	d.Start(10)
	for _, x := range []float64{20, 60, 100, 149, 120} {
		assert.False(t, d.Move(x))
	}
	assert.Equal(t, 110.0, d.State().OffsetX)
	assert.Zero(t, fired)

	d.End()
	st := d.State()
	assert.False(t, st.Dragging)
	assert.Zero(t, st.OffsetX)
	assert.False(t, st.Completed)
}

func TestDetector_ExactThresholdFiresOnce(t *testing.T) {
	fired := 0
	d := NewDetector(200, func() { fired++ })

	d.Start(0)
	assert.True(t, d.Move(140))
	for i := 0; i < 20; i++ {
		assert.False(t, d.Move(150+float64(i)))
	}
	assert.Equal(t, 1, fired)

	d.End()
	d.Start(0)
	d.Move(190)
	assert.Equal(t, 1, fired)
	st := d.State()
	assert.True(t, st.Completed)
	assert.Equal(t, 140.0, st.OffsetX)
}

func TestDetector_ClampsDelta(t *testing.T) {
	d := NewDetector(100, nil)
	d.Start(50)
	d.Move(10)
	assert.Zero(t, d.State().OffsetX)

	// track rộng 100, tay nắm 50: tối đa 50, tỉ lệ 0.5 nên không bao giờ hoàn tất
	assert.False(t, d.Move(500))
	assert.Equal(t, 50.0, d.State().OffsetX)
}

func TestDetector_MoveIgnoredWithoutStart(t *testing.T) {
	fired := 0
	d := NewDetector(200, func() { fired++ })
	assert.False(t, d.Move(190))
	assert.Zero(t, d.State().OffsetX)
	assert.Zero(t, fired)
}

func TestReleaseBus_MountAndUnmount(t *testing.T) {
	bus := NewReleaseBus()
	d := NewDetector(200, nil)
	unmount := d.Mount(bus)
	require.Equal(t, 1, bus.Len())

	d.Start(0)
	d.Move(80)
	bus.Release()
	assert.False(t, d.State().Dragging)
	assert.Zero(t, d.State().OffsetX)

	unmount()
	unmount()
	assert.Zero(t, bus.Len())

	d.Start(0)
	d.Move(80)
	bus.Release()
	assert.True(t, d.State().Dragging)
}
