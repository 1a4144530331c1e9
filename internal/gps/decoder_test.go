package gps

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rmcFix   = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n"
	ggaFix   = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"
	rmcVoid  = "$GPRMC,123520,V,4807.038,N,01131.000,E,000.0,000.0,230394,003.1,W*7B\r\n"
	ggaNoFix = "$GPGGA,123520,4807.038,N,01131.000,E,0,03,0.9,545.4,M,46.9,M,,*47\r\n"
	gsa      = "$GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1*39\r\n"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newTestDecoder(maxAge time.Duration) (*Decoder, *testClock) {
	clock := &testClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewDecoder(maxAge, WithClock(clock.now)), clock
}

func feed(d *Decoder, s string) {
	for i := 0; i < len(s); i++ {
		d.Consume(s[i])
	}
}

func TestDecoder_NoFixYet(t *testing.T) {
	d, _ := newTestDecoder(5 * time.Second)

	loc, ok := d.Location()
	assert.False(t, ok)
	assert.Zero(t, loc)
	_, ok = d.Altitude()
	assert.False(t, ok)
	_, ok = d.Satellites()
	assert.False(t, ok)
	assert.Equal(t, Fix{}, d.Fix())
}

func TestDecoder_RMCAndGGA(t *testing.T) {
	d, _ := newTestDecoder(5 * time.Second)
	feed(d, rmcFix+ggaFix)

	loc, ok := d.Location()
	require.True(t, ok)
	assert.InDelta(t, 48.1173, loc.Lat, 1e-6)
	assert.InDelta(t, 11.516667, loc.Lng, 1e-6)

	alt, ok := d.Altitude()
	require.True(t, ok)
	assert.InDelta(t, 545.4, alt, 1e-9)

	sats, ok := d.Satellites()
	require.True(t, ok)
	assert.Equal(t, 8, sats)

	spd, ok := d.SpeedKmh()
	require.True(t, ok)
	assert.InDelta(t, 41.4848, spd, 1e-9)

	course, ok := d.Course()
	require.True(t, ok)
	assert.InDelta(t, 84.4, course, 1e-9)

	assert.Equal(t, Stats{Chars: uint64(len(rmcFix) + len(ggaFix)), Passed: 2}, d.Stats())
}

func TestDecoder_FixLoss(t *testing.T) {
	d, _ := newTestDecoder(0)
	feed(d, rmcFix+ggaFix)

	feed(d, ggaNoFix)
	_, ok := d.Location()
	assert.False(t, ok)
	_, ok = d.Altitude()
	assert.False(t, ok)
	sats, ok := d.Satellites()
	assert.True(t, ok, "GGA without fix still reports satellites")
	assert.Equal(t, 3, sats)
	_, ok = d.SpeedKmh()
	assert.True(t, ok, "speed belongs to RMC")

	feed(d, rmcVoid)
	_, ok = d.SpeedKmh()
	assert.False(t, ok)
	_, ok = d.Course()
	assert.False(t, ok)
}

func TestDecoder_AgeOut(t *testing.T) {
	d, clock := newTestDecoder(5 * time.Second)
	feed(d, rmcFix+ggaFix)

	clock.t = clock.t.Add(5 * time.Second)
	_, ok := d.Location()
	assert.True(t, ok, "exactly max age is still valid")

	clock.t = clock.t.Add(time.Millisecond)
	loc, ok := d.Location()
	assert.False(t, ok)
	assert.Zero(t, loc)
	_, ok = d.Satellites()
	assert.False(t, ok)

	feed(d, ggaFix)
	_, ok = d.Location()
	assert.True(t, ok, "a fresh fix revalidates")
	_, ok = d.SpeedKmh()
	assert.False(t, ok, "speed was not refreshed")
}

func TestDecoder_BadInputIsCountedAndDropped(t *testing.T) {
	d, _ := newTestDecoder(0)

	badChecksum := strings.Replace(ggaFix, "*47", "*48", 1)
	overlong := "$GPGGA," + strings.Repeat("9", MaxSentenceLen) + "\r\n"
	interrupted := "$GPRMC,1235"

	feed(d, "garbage before a sentence "+badChecksum+overlong+interrupted+gsa+ggaFix)

	st := d.Stats()
	assert.Equal(t, uint64(2), st.Passed)
	assert.Equal(t, uint64(1), st.Failed)
	assert.Equal(t, uint64(2), st.Discarded)

	_, ok := d.Location()
	assert.True(t, ok)
}

func TestDecoder_SplitAcrossWrites(t *testing.T) {
	d, _ := newTestDecoder(0)
	half := len(rmcFix) / 2

	n, err := d.Write([]byte(rmcFix[:half]))
	require.NoError(t, err)
	assert.Equal(t, half, n)
	_, ok := d.Location()
	assert.False(t, ok)

	_, err = d.Write([]byte(rmcFix[half:]))
	require.NoError(t, err)
	_, ok = d.Location()
	assert.True(t, ok)
}

func TestDecoder_FixCopy(t *testing.T) {
	d, _ := newTestDecoder(0)
	feed(d, rmcFix+ggaFix)

	f := d.Fix()
	assert.True(t, f.HasLocation)
	assert.Equal(t, 8, f.Satellites)
	assert.InDelta(t, 545.4, f.AltitudeM, 1e-9)
}
