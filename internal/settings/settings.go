// Package settings supplies the operating identity and remembers the last
// successful sync.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Provider exposes who is operating the engine
type Provider interface {
	CurrentUserID() string
	CurrentStoreID() string
	CurrentUserMobile() string
	DeviceName() string
	RecordLastSync(last LastSync) error
}

// Identity is the configured operating user and store
type Identity struct {
	UserID     string `yaml:"user_id" mapstructure:"user_id"`
	StoreID    string `yaml:"store_id" mapstructure:"store_id"`
	UserMobile string `yaml:"user_mobile" mapstructure:"user_mobile"`
	DeviceName string `yaml:"device_name" mapstructure:"device_name"`
}

// Validate checks that the identity can scope remote backups
func (i *Identity) Validate() error {
	var errs []error
	if strings.TrimSpace(i.UserID) == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	if strings.TrimSpace(i.StoreID) == "" {
		errs = append(errs, errors.New("store_id is required"))
	}
	if strings.TrimSpace(i.UserMobile) == "" {
		errs = append(errs, errors.New("user_mobile is required"))
	}
	return errors.Join(errs...)
}

// LastSync describes the most recent successful remote backup
type LastSync struct {
	Time      time.Time `yaml:"time"`
	Operation string    `yaml:"operation"`
	Device    string    `yaml:"device"`
	DeviceID  string    `yaml:"device_id"`
	URL       string    `yaml:"url,omitempty"`
}

// State is the persisted settings file
type State struct {
	DeviceID string    `yaml:"device_id"`
	LastSync *LastSync `yaml:"last_sync,omitempty"`
}

// FileProvider reads the identity from configuration and persists state as
// YAML next to the configuration
type FileProvider struct {
	identity  Identity
	statePath string

	mu    sync.Mutex
	state *State
}

// NewFileProvider creates a provider. An empty statePath keeps state in memory.
func NewFileProvider(identity Identity, statePath string) (*FileProvider, error) {
	if identity.DeviceName == "" {
		if host, err := os.Hostname(); err == nil {
			identity.DeviceName = host
		} else {
			identity.DeviceName = "unknown-device"
		}
	}

	p := &FileProvider{identity: identity, statePath: statePath}
	state, err := p.load()
	if err != nil {
		return nil, err
	}
	if state.DeviceID == "" {
		state.DeviceID = uuid.New().String()
		if err := p.save(state); err != nil {
			return nil, err
		}
	}
	p.state = state
	return p, nil
}

func (p *FileProvider) CurrentUserID() string     { return p.identity.UserID }
func (p *FileProvider) CurrentStoreID() string    { return p.identity.StoreID }
func (p *FileProvider) CurrentUserMobile() string { return p.identity.UserMobile }
func (p *FileProvider) DeviceName() string        { return p.identity.DeviceName }

// DeviceID is a stable identifier generated on first use
func (p *FileProvider) DeviceID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.DeviceID
}

// RecordLastSync stores last and fills in the device fields
func (p *FileProvider) RecordLastSync(last LastSync) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if last.Device == "" {
		last.Device = p.identity.DeviceName
	}
	last.DeviceID = p.state.DeviceID
	if last.Time.IsZero() {
		last.Time = time.Now()
	}

	next := *p.state
	next.LastSync = &last
	if err := p.save(&next); err != nil {
		return err
	}
	p.state = &next
	return nil
}

// LastSync returns the recorded sync, if any
func (p *FileProvider) LastSync() (LastSync, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.LastSync == nil {
		return LastSync{}, false
	}
	return *p.state.LastSync, true
}

func (p *FileProvider) load() (*State, error) {
	if p.statePath == "" {
		return &State{}, nil
	}
	data, err := os.ReadFile(p.statePath)
	if errors.Is(err, os.ErrNotExist) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file %s: %w", p.statePath, err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", p.statePath, err)
	}
	return &state, nil
}

func (p *FileProvider) save(state *State) error {
	if p.statePath == "" {
		return nil
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.statePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := p.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return os.Rename(tmp, p.statePath)
}
