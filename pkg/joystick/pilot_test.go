package joystick

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	events []Event
	closed bool
}

func (d *fakeDevice) Close() error { d.closed = true; return nil }
func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) ReadEvent() (Event, error) {
	if len(d.events) == 0 {
		return Event{}, io.EOF
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev, nil
}

type tokenRecorder []byte

func (r *tokenRecorder) Post(tokens []byte) int {
	*r = append(*r, tokens...)
	return len(tokens)
}

func TestParseButtons(t *testing.T) {
	buttons, err := ParseButtons(DefaultButtons)
	require.NoError(t, err)
	require.Len(t, buttons, 8)
	require.Equal(t, byte('S'), buttons[0])
	require.Equal(t, byte('D'), buttons[7])
	require.Equal(t, DefaultButtons, formatButtons(buttons))

	buttons, err = ParseButtons(" 3=7 , ")
	require.NoError(t, err)
	require.Equal(t, map[int]byte{3: '7'}, buttons)

	for _, str := range []string{"0", "0=SP", "x=S", "-1=S"} {
		_, err = ParseButtons(str)
		require.Error(t, err, str)
	}
}

func TestPilotRun(t *testing.T) {
	dev := &fakeDevice{events: []Event{
		{Kind: EventButton, Index: 0, Value: 1, Init: true},
		{Kind: EventButton, Index: 0, Value: 1},
		{Kind: EventButton, Index: 0, Value: 0},
		{Kind: EventAxis, Index: 1, Value: 32767},
		{Kind: EventButton, Index: 9, Value: 1},
		{Kind: EventButton, Index: 3, Value: 1},
	}}
	var tokens tokenRecorder
	buttons, err := ParseButtons(DefaultButtons)
	require.NoError(t, err)
	p := &Pilot{Device: dev, Buttons: buttons, Queue: &tokens}
	require.ErrorIs(t, p.Run(context.Background()), io.EOF)
	require.Equal(t, "SF", string(tokens))
}
