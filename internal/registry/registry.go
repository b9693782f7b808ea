// Package registry persists the mapping between app names on the watch
// and their Connect IQ store ids. The wire protocol reports installed
// apps by name and version only, so store lookups need this side table.
// It is populated whenever an app is installed from a store URL.
package registry

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Entry links one installed app to its store listing.
type Entry struct {
	Name  string    `yaml:"name"`
	AppID uuid.UUID `yaml:"app_id"`
}

// Registry is the on-disk app registry.
type Registry struct {
	path    string
	Entries []Entry `yaml:"apps"`
}

// DefaultPath returns the default registry file path: ~/.gsl/apps.yaml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".gsl", "apps.yaml")
	}
	return filepath.Join(home, ".gsl", "apps.yaml")
}

// Load reads the registry at path. A missing file yields an empty
// registry.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup returns the store id recorded for an app name.
func (r *Registry) Lookup(name string) (uuid.UUID, bool) {
	for _, e := range r.Entries {
		if e.Name == name {
			return e.AppID, true
		}
	}
	return uuid.Nil, false
}

// Record adds or replaces the entry for an app name.
func (r *Registry) Record(name string, appID uuid.UUID) {
	for i, e := range r.Entries {
		if e.Name == name {
			r.Entries[i].AppID = appID
			return
		}
	}
	r.Entries = append(r.Entries, Entry{Name: name, AppID: appID})
}

// Save writes the registry back to its file, creating the directory if
// needed.
func (r *Registry) Save() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o600)
}
