package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigLoading(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "development", config.Environment)
		assert.Equal(t, 8080, config.Port)
		assert.Equal(t, "memory", config.Storage.Backend)
		assert.Equal(t, "localhost:6379", config.Cache.Node)
		assert.Equal(t, 300, config.Cache.TTL)
		assert.Equal(t, 1440, config.Auth.JWT.ExpiryMinutes)
	})

	t.Run("env var precedence", func(t *testing.T) {
		t.Setenv("SENTRA_PORT", "7777")
		t.Setenv("SENTRA_LOG_LEVEL", "warn")

		config, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 7777, config.Port)
		assert.Equal(t, "warn", config.LogLevel)
	})

	t.Run("ldap backend validates url", func(t *testing.T) {
		t.Setenv("SENTRA_STORAGE_BACKEND", "ldap")
		t.Setenv("SENTRA_STORAGE_LDAP_URL", "http://localhost:389")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ldap or ldaps")
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		t.Setenv("SENTRA_STORAGE_BACKEND", "etcd")

		_, err := Load()
		require.Error(t, err)
	})
}

func TestValidateLDAPURL(t *testing.T) {
	assert.NoError(t, ValidateLDAPURL("ldap://localhost:389"))
	assert.NoError(t, ValidateLDAPURL("ldaps://dir.example.com:636"))
	assert.Error(t, ValidateLDAPURL(""))
	assert.Error(t, ValidateLDAPURL("http://localhost:389"))
}

func TestValidateCacheNode(t *testing.T) {
	assert.NoError(t, ValidateCacheNode("localhost:6379"))
	assert.Error(t, ValidateCacheNode("localhost"))
	assert.Error(t, ValidateCacheNode(""))
}
