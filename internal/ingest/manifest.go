package ingest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reweave/reweave/internal/thread"
)

// Manifest lists per-group reconstruction overrides for batch ingestion.
//
//	groups:
//	  - group_id: 123456
//	    time_threshold: 10m
//	    min_participants: 3
type Manifest struct {
	Groups []GroupOverride `yaml:"groups"`
}

// GroupOverride adjusts engine options for one chat group. Zero fields keep
// the base value.
type GroupOverride struct {
	GroupID               int64  `yaml:"group_id"`
	TimeThreshold         string `yaml:"time_threshold"`
	IDThreshold           int64  `yaml:"id_threshold"`
	MinParticipants       int    `yaml:"min_participants"`
	MaxThreadMessages     int    `yaml:"max_thread_messages"`
	MaxThreadParticipants int    `yaml:"max_thread_participants"`
}

// LoadManifest reads a YAML group manifest.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// OptionsFor resolves the engine options for a group: the base options with
// any manifest overrides for that group applied on top.
func (m Manifest) OptionsFor(groupID int64, base thread.Options) thread.Options {
	for _, g := range m.Groups {
		if g.GroupID != groupID {
			continue
		}
		if g.TimeThreshold != "" {
			if d, err := time.ParseDuration(g.TimeThreshold); err == nil {
				base.TimeThreshold = d
			}
		}
		if g.IDThreshold > 0 {
			base.IDThreshold = g.IDThreshold
		}
		if g.MinParticipants > 0 {
			base.MinParticipants = g.MinParticipants
		}
		if g.MaxThreadMessages > 0 {
			base.MaxThreadMessages = g.MaxThreadMessages
		}
		if g.MaxThreadParticipants > 0 {
			base.MaxThreadParticipants = g.MaxThreadParticipants
		}
		return base
	}
	return base
}
