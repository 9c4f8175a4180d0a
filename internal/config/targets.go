package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/inkwell-app/inkwell-sync/internal/errors"
)

// Target is one WebDAV server a set of journals syncs against. Its ID
// keys the local manifest, the remote manifest's configId field and the
// run-state record, so changing it orphans sync history.
type Target struct {
	ID        string `yaml:"id"`
	ServerURL string `yaml:"serverUrl"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`

	// BasePath is the remote directory the journal tree lives under.
	BasePath string `yaml:"basePath"`

	// Journals lists the journal IDs enabled for this target.
	Journals []string `yaml:"journals"`

	SyncAttachments bool `yaml:"syncAttachments"`

	// WifiOnly is recorded for clients that can tell networks apart; a
	// headless daemon has no radio to consult and ignores it.
	WifiOnly bool `yaml:"wifiOnly"`

	// Encrypt requests payload encryption, which no build implements.
	// A target setting it is rejected at load time rather than silently
	// synced in plaintext.
	Encrypt bool `yaml:"encrypt"`

	Enabled bool `yaml:"enabled"`
}

// targetsFile is the on-disk document shape.
type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// LoadTargets reads and validates the YAML target list. Disabled targets
// are kept in the result; callers filter on Enabled.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file %s: %w", path, err)
	}

	var doc targetsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing targets file %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(doc.Targets))

	for i := range doc.Targets {
		t := &doc.Targets[i]

		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("target %d: %w", i+1, err)
		}

		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate target id %q", t.ID)
		}

		seen[t.ID] = struct{}{}
	}

	return doc.Targets, nil
}

func (t *Target) validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}

	if t.ServerURL == "" {
		return fmt.Errorf("serverUrl is required")
	}

	u, err := url.Parse(t.ServerURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("serverUrl %q is not a valid URL", t.ServerURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("serverUrl scheme must be http or https, got %q", u.Scheme)
	}

	if t.Username == "" {
		return fmt.Errorf("username is required")
	}

	if t.Encrypt {
		return fmt.Errorf("target %s: %w", t.ID, apperrors.ErrEncryptionUnsupported)
	}

	return nil
}
