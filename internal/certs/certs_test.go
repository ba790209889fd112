package certs

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(t *testing.T, cert tls.Certificate) *x509.Certificate {
	t.Helper()
	require.NotEmpty(t, cert.Certificate)
	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return parsed
}

func TestStore_LoadOrCreate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	store := NewStore(dir)

	cert, err := store.LoadOrCreate()
	require.NoError(t, err)

	parsed := leaf(t, cert)
	for _, host := range DefaultHosts {
		assert.NoError(t, parsed.VerifyHostname(host), host)
	}
	assert.Equal(t, []string{"spendwise"}, parsed.Subject.Organization)
	assert.WithinDuration(t, time.Now().Add(Validity), parsed.NotAfter, time.Minute)

	for _, name := range []string{"localhost.crt", "localhost.key"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), name)
	}
	assert.Equal(t, filepath.Join(dir, "localhost.crt"), store.CertFile())

	again, err := store.LoadOrCreate()
	require.NoError(t, err)
	assert.Equal(t, cert.Certificate[0], again.Certificate[0], "a valid certificate is reused")
}

func TestStore_Regenerates(t *testing.T) {
	tests := []struct {
		prepare func(t *testing.T, dir string) *Store
		name    string
	}{
		{
			name: "expiring soon",
			prepare: func(_ *testing.T, dir string) *Store {
				s := NewStore(dir)
				s.now = func() time.Time { return time.Now().Add(Validity - 10*24*time.Hour) }
				return s
			},
		},
		{
			name: "missing host",
			prepare: func(_ *testing.T, dir string) *Store {
				return NewStore(dir, "localhost", "spend.local")
			},
		},
		{
			name: "corrupt files",
			prepare: func(t *testing.T, dir string) *Store {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "localhost.crt"), []byte("junk"), 0o600))
				return NewStore(dir)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			original, err := NewStore(dir).LoadOrCreate()
			require.NoError(t, err)

			store := tt.prepare(t, dir)
			regenerated, err := store.LoadOrCreate()
			require.NoError(t, err)
			assert.NotEqual(t, original.Certificate[0], regenerated.Certificate[0])
			assert.NoError(t, store.verify(regenerated))
		})
	}
}

func TestStore_CustomHosts(t *testing.T) {
	store := NewStore(t.TempDir(), "spend.local", "10.0.0.5")
	cert, err := store.LoadOrCreate()
	require.NoError(t, err)

	parsed := leaf(t, cert)
	assert.Equal(t, []string{"spend.local"}, parsed.DNSNames)
	require.Len(t, parsed.IPAddresses, 1)
	assert.Equal(t, "10.0.0.5", parsed.IPAddresses[0].String())
	assert.Error(t, parsed.VerifyHostname("localhost"))
}
