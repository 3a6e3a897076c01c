package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryRing() *Ring {
	mem := keyring.NewArrayKeyring(nil)
	return &Ring{open: func(keyring.Config) (keyring.Keyring, error) { return mem, nil }}
}

func TestRing_RoundTrip(t *testing.T) {
	r := memoryRing()

	_, err := r.Get("gmail-token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.Set("gmail-token", []byte(`{"access_token":"x"}`)))
	got, err := r.Get("gmail-token")
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"x"}`, string(got))

	require.NoError(t, r.Delete("gmail-token"))
	require.NoError(t, r.Delete("gmail-token"))
	_, err = r.Get("gmail-token")
	assert.ErrorIs(t, err, ErrNotFound)
}
