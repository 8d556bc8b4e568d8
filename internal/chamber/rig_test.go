package chamber

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/operant/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDisplay struct {
	calls  []string
	bg     func(domain.Touch)
	closed int
}

func (d *fakeDisplay) DrawStimulus(region domain.Region, _ domain.Shape, _ string) error {
	d.calls = append(d.calls, "draw "+region.Name)
	return nil
}

func (d *fakeDisplay) RegisterHitRegion(region domain.Region, _ func(domain.Touch)) error {
	d.calls = append(d.calls, "register "+region.Name)
	return nil
}

func (d *fakeDisplay) ClearDisplay() error {
	d.calls = append(d.calls, "clear")
	return nil
}

func (d *fakeDisplay) OnBackgroundTouch(fn func(domain.Touch)) { d.bg = fn }

func (d *fakeDisplay) Close() error {
	d.closed++
	return nil
}

type fakeFeeder struct {
	pulses []time.Duration
	err    error
	closed int
}

func (f *fakeFeeder) ActivateFeeder(_ context.Context, d time.Duration) error {
	f.pulses = append(f.pulses, d)
	return f.err
}

func (f *fakeFeeder) Close() error {
	f.closed++
	return errors.New("relay stuck")
}

func TestRig(t *testing.T) {
	d := &fakeDisplay{}
	f := &fakeFeeder{}
	rig, err := New(d, f)
	require.NoError(t, err)

	key := domain.Region{Name: "left_choice_key"}
	require.NoError(t, rig.DrawStimulus(key, domain.ShapeCircle, "white"))
	require.NoError(t, rig.RegisterHitRegion(key, func(domain.Touch) {}))
	require.NoError(t, rig.ActivateFeeder(context.Background(), 3*time.Second))
	assert.Equal(t, []time.Duration{3 * time.Second}, f.pulses)

	var got domain.Touch
	rig.OnBackgroundTouch(func(t domain.Touch) { got = t })
	require.NotNil(t, d.bg)
	d.bg(domain.Touch{X: 1})
	assert.Equal(t, 1.0, got.X)

	err = rig.Close()
	assert.ErrorContains(t, err, "relay stuck")
	assert.Equal(t, err, rig.Close(), "close is idempotent")
	assert.Equal(t, 1, f.closed)
	assert.Equal(t, 1, d.closed)
	assert.Equal(t, []string{"draw left_choice_key", "register left_choice_key", "clear"}, d.calls)
}

func TestNew_RequiresParts(t *testing.T) {
	_, err := New(nil, &fakeFeeder{})
	assert.Error(t, err)
	_, err = New(&fakeDisplay{}, nil)
	assert.Error(t, err)
}
