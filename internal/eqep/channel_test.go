package eqep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAllChannels(t *testing.T) {
	for _, ch := range []Channel{EQEP0, EQEP1, EQEP2, EQEP2b} {
		t.Run(ch.String(), func(t *testing.T) {
			d, err := Resolve(ch)
			require.NoError(t, err)
			assert.Equal(t, ch, d.Channel)
			assert.NotEmpty(t, d.DevicePath)
			assert.NotEmpty(t, d.PinA)
			assert.NotEmpty(t, d.PinB)
			assert.NotEqual(t, d.PinA, d.PinB)
		})
	}
}

func TestResolveSharedModule(t *testing.T) {
	d2, err := Resolve(EQEP2)
	require.NoError(t, err)
	d2b, err := Resolve(EQEP2b)
	require.NoError(t, err)

	assert.Equal(t, d2.DevicePath, d2b.DevicePath)
	assert.NotEqual(t, d2.PinA, d2b.PinA)

	d0, _ := Resolve(EQEP0)
	d1, _ := Resolve(EQEP1)
	assert.NotEqual(t, d0.DevicePath, d1.DevicePath)
	assert.NotEqual(t, d1.DevicePath, d2.DevicePath)
}

func TestResolveInvalid(t *testing.T) {
	for _, ch := range []Channel{-1, 4, 99} {
		_, err := Resolve(ch)
		assert.ErrorIs(t, err, ErrInvalidChannel, "channel %d", int(ch))
	}
}

func TestChannelsIsACopy(t *testing.T) {
	defs := Channels()
	require.Len(t, defs, 4)
	defs[0].DevicePath = "/tmp"

	d, _ := Resolve(EQEP0)
	assert.NotEqual(t, "/tmp", d.DevicePath)
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    Channel
		wantErr bool
	}{
		{"0", EQEP0, false},
		{"3", EQEP2b, false},
		{"eqep1", EQEP1, false},
		{"eQEP2", EQEP2, false},
		{" EQEP2B ", EQEP2b, false},
		{"4", 0, true},
		{"-1", 0, true},
		{"eqep3", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChannel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidChannel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "eQEP2b", EQEP2b.String())
	assert.Equal(t, "eQEP(7)", Channel(7).String())
}
