package config

import (
	"strings"

	"go.mozilla.org/sops/v3/decrypt"
)

// sopsMarker is the prefix a config value must carry to be treated as a
// path to a SOPS-encrypted file rather than a literal value, mirroring the
// teacher's optional encrypted-config support.
const sopsMarker = "sops://"

// decryptSecrets resolves any "sops://" prefixed Database.ConnString value
// into its decrypted plaintext, loaded in as YAML and read back. A plain
// connection string (the common case) is left untouched.
func (c *Config) decryptSecrets() error {
	if !strings.HasPrefix(c.Database.ConnString, sopsMarker) {
		return nil
	}
	path := strings.TrimPrefix(c.Database.ConnString, sopsMarker)
	plain, err := decrypt.File(path, "yaml")
	if err != nil {
		return err
	}
	c.Database.ConnString = strings.TrimSpace(string(plain))
	return nil
}
