package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormStateRoundTrip(t *testing.T) {
	formStateSecret = []byte("test-secret")
	form := onboardForm{
		Name:           "Synth Preset Pack",
		PriceInCents:   900,
		DestinationURL: "https://example.com/thank-you",
		ProtectedURL:   "https://cdn.example.com/presets.zip",
		Email:          "creator@example.com",
	}
	state, err := encodeFormState(form)
	require.NoError(t, err)

	got, err := decodeFormState(state)
	require.NoError(t, err)
	require.Equal(t, form, got)
}

func TestFormStateOptionalFields(t *testing.T) {
	formStateSecret = []byte("test-secret")
	form := onboardForm{
		Name:           "Newsletter",
		PriceInCents:   500,
		DestinationURL: "https://example.com/issue-1",
	}
	state, err := encodeFormState(form)
	require.NoError(t, err)

	got, err := decodeFormState(state)
	require.NoError(t, err)
	require.Empty(t, got.ProtectedURL)
	require.Empty(t, got.Email)
}

func TestFormStateRejectsTampering(t *testing.T) {
	formStateSecret = []byte("test-secret")
	state, err := encodeFormState(onboardForm{
		Name:           "Pack",
		PriceInCents:   900,
		DestinationURL: "https://example.com/x",
	})
	require.NoError(t, err)

	// Flip a character in the payload segment.
	parts := strings.Split(state, ".")
	require.Len(t, parts, 3)
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = decodeFormState(tampered)
	require.Error(t, err)

	// Wrong key fails too.
	formStateSecret = []byte("other-secret")
	_, err = decodeFormState(state)
	require.Error(t, err)
}
