// internal/config/secrets.go
//
// Vault reference resolution.
//
// Context
// -------
// Secret-bearing fields may hold a reference of the form
//
//	vault:<mount>/<path>#<key>
//
// e.g. `vault:secret/eventsite/db#password`.  ResolveSecrets walks the
// known secret fields, fetches each reference through a SecretGetter, and
// stores the plain value back into a copy of the Config.  Plain values pass
// through untouched, so dev setups can keep literal passwords in .env.

package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const vaultPrefix = "vault:"

// secretTTL bounds how long the Vault client may cache a resolved value.
const secretTTL = 10 * time.Minute

// SecretGetter is satisfied by *vault.Client.
type SecretGetter interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// HasSecretRefs reports whether any secret field holds a vault: reference,
// so main can skip building a Vault client when none is needed.
func (c *Config) HasSecretRefs() bool {
	for _, p := range c.secretFields() {
		if IsVaultRef(*p) {
			return true
		}
	}
	return false
}

// ResolveSecrets returns a copy of cfg with every vault: reference replaced
// by its value.  The cached Config is swapped to the resolved copy.
func ResolveSecrets(ctx context.Context, cfg *Config, sg SecretGetter) (*Config, error) {
	out := *cfg
	for _, p := range out.secretFields() {
		if !IsVaultRef(*p) {
			continue
		}
		path, key, err := ParseVaultRef(*p)
		if err != nil {
			return nil, err
		}
		val, err := sg.GetKV(ctx, path, key, secretTTL)
		if err != nil {
			return nil, fmt.Errorf("resolve %s#%s: %w", path, key, err)
		}
		*p = val
	}
	current.Store(&out)
	return &out, nil
}

// IsVaultRef reports whether s is a vault: reference.
func IsVaultRef(s string) bool { return strings.HasPrefix(s, vaultPrefix) }

// ParseVaultRef splits "vault:<path>#<key>" into its parts.
func ParseVaultRef(ref string) (path, key string, err error) {
	body := strings.TrimPrefix(ref, vaultPrefix)
	path, key, ok := strings.Cut(body, "#")
	if !ok || path == "" || key == "" {
		return "", "", fmt.Errorf("malformed vault reference %q (want vault:<path>#<key>)", ref)
	}
	return path, key, nil
}

func (c *Config) secretFields() []*string {
	return []*string{
		&c.Database.Password,
		&c.Route53.SecretAccessKey,
		&c.Route53.AccessKeyID,
		&c.Redis.URL,
	}
}
