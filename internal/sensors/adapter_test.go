package sensors

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const readFailedMsg = "sensors: read failed, using fallback"

func allAvailable() Availability {
	return Availability{true, true, true, true}
}

func TestBind_UnavailableRoleNeverOpensOrReads(t *testing.T) {
	var opened int
	drv := &fakeDriver{results: []fakeResult{{r: Env{TemperatureC: 21, PressureHPa: 1000, AltitudeM: 3}}}}

	set := Bind(Availability{PressureTemp: false}, BindOptions{
		Addresses: DefaultAddresses(),
		Openers:   map[Role]Opener{PressureTemp: openerFor(drv, nil, &opened)},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, FallbackEnv, set.Sample().Env)
	}
	assert.Zero(t, opened)
	assert.Zero(t, drv.reads)
	assert.False(t, set.Adapter(PressureTemp).Available())
}

func TestBind_InitFailureDemotesRole(t *testing.T) {
	var opened int
	set := Bind(allAvailable(), BindOptions{
		Addresses: DefaultAddresses(),
		Openers: map[Role]Opener{
			PressureTemp:      openerFor(&fakeDriver{results: []fakeResult{{r: Env{TemperatureC: 20}}}}, nil, nil),
			HumidityTemp:      openerFor(nil, ErrUnexpectedDevice, &opened),
			InertialPrimary:   openerFor(&fakeDriver{results: []fakeResult{{r: inertial(1)}}}, nil, nil),
			InertialSecondary: openerFor(&fakeDriver{results: []fakeResult{{r: inertial(3)}}}, nil, nil),
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	assert.Equal(t, Availability{true, false, true, true}, set.Availability())

	s := set.Sample()
	assert.Equal(t, FallbackHumidity, s.Humidity)
	assert.Equal(t, 20.0, s.Env.TemperatureC)
	assert.Equal(t, inertial(1), s.Primary)
	assert.Equal(t, inertial(3), s.Secondary)

	set.Sample()
	assert.Equal(t, 1, opened, "opener runs once per role")
}

func TestBind_MissingOpenerLeavesRoleUnavailable(t *testing.T) {
	set := Bind(allAvailable(), BindOptions{
		Addresses: DefaultAddresses(),
		Openers:   map[Role]Opener{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	assert.Zero(t, set.Availability().Count())
	assert.Equal(t, Sample{
		Env:       FallbackEnv,
		Humidity:  FallbackHumidity,
		Primary:   FallbackInertial,
		Secondary: FallbackInertial,
	}, set.Sample())
}

func TestAdapter_TransientReadFailureSelfHeals(t *testing.T) {
	good := inertial(2)
	drv := &fakeDriver{results: []fakeResult{
		{r: good},
		{err: errBus},
		{r: good},
	}}
	set := Bind(Availability{InertialPrimary: true}, BindOptions{
		Addresses: DefaultAddresses(),
		Openers:   map[Role]Opener{InertialPrimary: openerFor(drv, nil, nil)},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	a := set.Adapter(InertialPrimary)
	assert.Equal(t, good, a.Read())
	assert.Equal(t, FallbackInertial, a.Read())
	assert.True(t, a.Available())
	assert.Equal(t, good, a.Read())
	assert.Equal(t, 3, drv.reads, "no retry within a read")
}

func TestAdapter_ReadFailureLogIsThrottled(t *testing.T) {
	h := &captureHandler{}
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	drv := &fakeDriver{results: []fakeResult{{err: errBus}}}

	set := Bind(Availability{HumidityTemp: true}, BindOptions{
		Addresses:            DefaultAddresses(),
		Openers:              map[Role]Opener{HumidityTemp: openerFor(drv, nil, nil)},
		Logger:               slog.New(h),
		ReadErrorLogInterval: 10 * time.Second,
		Now:                  clock.now,
	})
	a := set.Adapter(HumidityTemp)

	// 350ms cadence for 9.8s: one warning, the rest suppressed.
	for i := 0; i < 28; i++ {
		assert.Equal(t, FallbackHumidity, a.Read())
		clock.advance(350 * time.Millisecond)
	}
	recs := h.recordsFor(t, readFailedMsg)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(0), recs[0]["suppressed"].Int64())

	clock.advance(time.Second)
	a.Read()

	recs = h.recordsFor(t, readFailedMsg)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(27), recs[1]["suppressed"].Int64())
	assert.True(t, errors.Is(recs[1]["err"].Any().(error), errBus))
}

func TestSample_WrongReadingTypeFallsBack(t *testing.T) {
	set := Bind(Availability{PressureTemp: true}, BindOptions{
		Addresses: DefaultAddresses(),
		Openers: map[Role]Opener{
			PressureTemp: openerFor(&fakeDriver{results: []fakeResult{{r: Humidity{TemperatureC: 20}}}}, nil, nil),
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	assert.Equal(t, FallbackEnv, set.Sample().Env)
}
