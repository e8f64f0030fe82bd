package apikey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServerKeys(t *testing.T) *ServerKeyManager {
	t.Helper()
	dir := t.TempDir()
	return NewServerKeyManager(NewManagerWithFallback(dir), dir)
}

func TestServerKeys_AddAndValidate(t *testing.T) {
	sk := newTestServerKeys(t)

	secret, err := sk.AddKey("laptop")
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	assert.True(t, sk.Validate(secret))
	assert.False(t, sk.Validate("wrong-secret"))
	assert.False(t, sk.Validate(""))
	assert.Equal(t, []string{"laptop"}, sk.ListNames())
}

func TestServerKeys_NameRules(t *testing.T) {
	sk := newTestServerKeys(t)

	_, err := sk.AddKey("")
	require.ErrorIs(t, err, ErrEmptyName)

	_, err = sk.AddKey("laptop")
	require.NoError(t, err)
	_, err = sk.AddKey("laptop")
	require.ErrorIs(t, err, ErrKeyNameExists)
}

func TestServerKeys_SecretsAreUniquePerName(t *testing.T) {
	sk := newTestServerKeys(t)

	first, err := sk.AddKey("laptop")
	require.NoError(t, err)
	second, err := sk.AddKey("tablet")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, sk.Validate(first))
	assert.True(t, sk.Validate(second))
	assert.Equal(t, []string{"laptop", "tablet"}, sk.ListNames())
}

func TestServerKeys_Delete(t *testing.T) {
	sk := newTestServerKeys(t)

	secret, err := sk.AddKey("laptop")
	require.NoError(t, err)

	require.NoError(t, sk.DeleteKey("laptop"))
	assert.False(t, sk.Validate(secret))
	assert.Empty(t, sk.ListNames())

	// Absent name deletes silently.
	require.NoError(t, sk.DeleteKey("laptop"))
}

func TestServerKeys_IndexPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	keys := NewManagerWithFallback(dir)

	sk1 := NewServerKeyManager(keys, dir)
	secret, err := sk1.AddKey("laptop")
	require.NoError(t, err)

	sk2 := NewServerKeyManager(keys, dir)
	assert.Equal(t, []string{"laptop"}, sk2.ListNames())
	assert.True(t, sk2.Validate(secret))
}
