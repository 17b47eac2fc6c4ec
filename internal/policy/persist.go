package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	actorWeightsFile  = "actor.weights.json"
	criticWeightsFile = "critic.weights.json"
)

// Save persists both networks under dir. The write goes to a temporary
// sibling directory first and is renamed into place, so an interrupted
// save never leaves a partially written checkpoint behind. JSON float64
// encoding round-trips exactly, so a saved model reproduces identical
// outputs after Load.
func (m *Model) Save(dir string) error {
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint parent dir: %w", err)
	}

	tmpDir, err := os.MkdirTemp(parent, filepath.Base(dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := writeNetwork(filepath.Join(tmpDir, actorWeightsFile), m.actor); err != nil {
		return err
	}
	if err := writeNetwork(filepath.Join(tmpDir, criticWeightsFile), m.critic); err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear existing checkpoint %s: %w", dir, err)
	}
	if err := os.Rename(tmpDir, dir); err != nil {
		return fmt.Errorf("failed to move checkpoint into place: %w", err)
	}
	return nil
}

// Load restores both networks from a checkpoint directory previously
// written by Save. Optimizer state is not persisted; it restarts from
// zero.
func (m *Model) Load(dir string) error {
	actor, err := readNetwork(filepath.Join(dir, actorWeightsFile))
	if err != nil {
		return err
	}
	critic, err := readNetwork(filepath.Join(dir, criticWeightsFile))
	if err != nil {
		return err
	}
	m.actor = actor
	m.critic = critic
	return nil
}

func writeNetwork(path string, n *Network) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal network: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var n Network
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	for _, layer := range n.Layers {
		layer.initBuffers()
	}
	return &n, nil
}
