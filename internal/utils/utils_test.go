package utils

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"hideseek/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSelfSignedCert(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "certs", "server.crt")
	key := filepath.Join(dir, "certs", "server.key")
	require.NoError(t, EnsureSelfSignedCert(cert, key, "hideseek.local"))
	_, err := tls.LoadX509KeyPair(cert, key)
	require.NoError(t, err)

	st, err := os.Stat(cert)
	require.NoError(t, err)
	// 已存在时不重写
	require.NoError(t, EnsureSelfSignedCert(cert, key, "other"))
	st2, err := os.Stat(cert)
	require.NoError(t, err)
	assert.Equal(t, st.ModTime(), st2.ModTime())
}

func TestOpenRedisDisabled(t *testing.T) {
	assert.Nil(t, OpenRedis(config.Redis{}))
	assert.NotNil(t, OpenRedis(config.Redis{Host: "127.0.0.1", Port: "6379"}))
}
