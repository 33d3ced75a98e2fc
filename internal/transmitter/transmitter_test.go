package transmitter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	words []uint32
	i     int
}

func (s *sliceSource) Next() (uint32, bool) {
	if s.i >= len(s.words) {
		return 0, false
	}
	w := s.words[s.i]
	s.i++
	return w, true
}

func TestDummySendDrainsSource(t *testing.T) {
	d := NewDummy(1200, nil)
	src := &sliceSource{words: []uint32{1, 2, 3}}

	start := time.Now()
	err := d.Send(src)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, src.i)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestFormatBitsIsMSBFirst(t *testing.T) {
	assert.Equal(t, "10000000000000000000000000000000"[0:32], formatBits(0x80000000))
	assert.Equal(t, "00000000000000000000000000000001", formatBits(1))
	assert.Len(t, formatBits(0), 32)
}

type fakePTT struct {
	calls []bool
	err   error
}

func (f *fakePTT) Set(assert bool) error {
	f.calls = append(f.calls, assert)
	return f.err
}
func (f *fakePTT) Close() error { return nil }

func TestWithPTTAlwaysReleasesOnError(t *testing.T) {
	p := &fakePTT{}
	err := withPTT(p, func() error { return errors.New("boom") })

	require.Error(t, err)
	require.Len(t, p.calls, 2)
	assert.True(t, p.calls[0])
	assert.False(t, p.calls[1])
}

func TestWithPTTNilControllerRunsFn(t *testing.T) {
	ran := false
	err := withPTT(nil, func() error { ran = true; return nil })
	require.NoError(t, err)
	assert.True(t, ran)
}
