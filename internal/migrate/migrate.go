// Package migrate applies sequential schema migrations to on-disk data,
// upgrading from one version to the next.
package migrate

import (
	"fmt"
	"log/slog"
	"sort"
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Migration upgrades raw file data to [Migration.Version].
type Migration struct {
	// Version is the schema version this migration produces.
	Version int
	// Description is a short human-readable label for log output.
	Description string
	// Upgrade transforms data from the prior version to Version.
	Upgrade func(data []byte) ([]byte, error)
}

// Registry holds the current version and migrations for one file schema.
type Registry struct {
	// CurrentVersion is the latest schema version that this registry targets.
	CurrentVersion int
	// Migrations is the list of versioned upgrades, in any order.
	Migrations []Migration
}

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Register appends a migration. It panics on a duplicate version.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// Needs reports whether data at fileVersion has to be upgraded.
func (r *Registry) Needs(fileVersion int) bool {
	if fileVersion < r.CurrentVersion {
		return true
	}
	for _, m := range r.Migrations {
		if fileVersion < m.Version {
			return true
		}
	}
	return false
}

// Run applies every migration with fromVersion < m.Version in ascending
// order. Returns the transformed data and the version reached.
func (r *Registry) Run(data []byte, fromVersion int) ([]byte, int, error) {
	sorted := make([]Migration, len(r.Migrations))
	copy(sorted, r.Migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	version := fromVersion
	for _, m := range sorted {
		if version >= m.Version {
			continue
		}
		slog.Info("applying migration", "version", m.Version, "description", m.Description)
		out, err := m.Upgrade(data)
		if err != nil {
			return nil, version, fmt.Errorf("migration to v%d failed: %w", m.Version, err)
		}
		data = out
		version = m.Version
	}
	return data, version, nil
}

// Settings is the migration registry for settings.toml. Version 1 is the
// flat key layout exported by the editor plugin; version 2 is sectioned.
var Settings = &Registry{CurrentVersion: 2}
