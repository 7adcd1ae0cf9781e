// internal/config/loader_test.go
//
// Unit-tests for the layered loader and vault reference handling.

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
http:
  listen_addr: ":9090"
database:
  dsn: "app@tcp(127.0.0.1:3306)/eventsite"
  password: "vault:secret/eventsite/db#password"
dns:
  expected_cname: "sites.example-platform.net"
  expected_ips: ["203.0.113.10"]
tenant:
  default_site_id: "9b2f7c1e-4a57-4f7a-8a51-3f0e2a6c5d10"
  default_user_id: "operator"
`

func writeConf(t *testing.T, body string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "conf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(body), 0o644))
	return root
}

func TestLoadFrom_DefaultsAndEnvOverride(t *testing.T) {
	root := writeConf(t, baseYAML)
	t.Setenv("EVENTSITE_HTTP__FORCE_HTTPS", "true")
	t.Setenv("EVENTSITE_JOBS__BATCH_SIZE", "25")

	cfg, err := LoadFrom(root)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.ListenAddr)
	assert.True(t, cfg.HTTP.ForceHTTPS)
	assert.Equal(t, 25, cfg.Jobs.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.SSL.ActivationDelay)
	assert.Equal(t, "@every 15m", cfg.Jobs.ReverifySchedule)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Same(t, cfg, Get())
}

func TestLoadFrom_ValidationFailure(t *testing.T) {
	root := writeConf(t, `
database:
  dsn: "app@tcp(127.0.0.1:3306)/eventsite"
dns:
  expected_cname: "sites.example-platform.net"
tenant:
  default_site_id: "not-a-uuid"
  default_user_id: "operator"
`)
	_, err := LoadFrom(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DefaultSiteID")
}

func TestLoadFrom_Route53RequiresZone(t *testing.T) {
	root := writeConf(t, baseYAML+`
route53:
  enabled: true
`)
	_, err := LoadFrom(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HostedZoneID")
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetKV(_ context.Context, path, key string, _ time.Duration) (string, error) {
	v, ok := f[path+"#"+key]
	if !ok {
		return "", errors.New("missing")
	}
	return v, nil
}

func TestResolveSecrets(t *testing.T) {
	cfg, err := LoadFrom(writeConf(t, baseYAML))
	require.NoError(t, err)
	require.True(t, cfg.HasSecretRefs())

	out, err := ResolveSecrets(context.Background(), cfg, fakeSecrets{
		"secret/eventsite/db#password": "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3cret", out.Database.Password)
	assert.Equal(t, "vault:secret/eventsite/db#password", cfg.Database.Password, "input must not be mutated")
	assert.False(t, out.HasSecretRefs())
}

func TestParseVaultRef(t *testing.T) {
	path, key, err := ParseVaultRef("vault:secret/a/b#pw")
	require.NoError(t, err)
	assert.Equal(t, "secret/a/b", path)
	assert.Equal(t, "pw", key)

	_, _, err = ParseVaultRef("vault:secret/a/b")
	assert.Error(t, err)
}
