package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	issuer, err := New([]byte("test-secret"))
	require.NoError(t, err)

	raw, err := issuer.Issue("acct-1")
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(raw, ".")))

	id, err := issuer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "acct-1", id)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, err := New([]byte("secret-a"))
	require.NoError(t, err)
	other, err := New([]byte("secret-b"))
	require.NoError(t, err)

	raw, err := issuer.Issue("acct-1")
	require.NoError(t, err)

	_, err = other.Verify(raw)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	base := time.Now()
	clock := base
	issuer, err := New([]byte("secret"), WithTTL(time.Minute), WithClock(func() time.Time { return clock }))
	require.NoError(t, err)

	raw, err := issuer.Issue("acct-1")
	require.NoError(t, err)

	clock = base.Add(2 * time.Minute)
	_, err = issuer.Verify(raw)
	require.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, err := New([]byte("secret"))
	require.NoError(t, err)
	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := issuer.Verify(raw)
		require.Error(t, err, "token %q", raw)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	_, err = New([]byte{})
	require.Error(t, err)
}

func TestIssueRequiresAccountID(t *testing.T) {
	issuer, err := New([]byte("secret"))
	require.NoError(t, err)
	_, err = issuer.Issue("")
	require.Error(t, err)
}
