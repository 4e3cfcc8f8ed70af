package storage

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/eugenenazirov/binpack3d/internal/packing"
)

const maxProfiles = 64

var (
	// ErrProfileNotFound indicates no container preset is stored under the requested name.
	ErrProfileNotFound = errors.New("container profile not found")
	// ErrInvalidProfile indicates a preset violates naming or dimension rules.
	ErrInvalidProfile = errors.New("container profile must have a name and positive dimensions")
	// ErrTooManyProfiles indicates the preset limit has been reached.
	ErrTooManyProfiles = errors.New("too many container profiles")
)

var profileName = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,63}$`)

// Profile is a named container preset, e.g. a truck body or a shipping container.
type Profile struct {
	Name              string `json:"name" yaml:"name"`
	packing.Container `yaml:",inline"`
}

var defaultProfiles = []Profile{
	{Name: "20ft", Container: packing.Container{Width: 589, Height: 235, Depth: 239, MaxWeight: 28200}},
	{Name: "40ft", Container: packing.Container{Width: 1203, Height: 235, Depth: 239, MaxWeight: 26700}},
	{Name: "40ft_hc", Container: packing.Container{Width: 1203, Height: 269, Depth: 235, MaxWeight: 26500}},
	{Name: "van", Container: packing.Container{Width: 330, Height: 170, Depth: 178, MaxWeight: 1200}},
}

// Storage provides access to the container presets used by the API.
type Storage interface {
	ListProfiles() ([]Profile, error)
	GetProfile(name string) (Profile, error)
	SetProfile(p Profile) error
}

// MemoryStorage keeps presets in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu       sync.RWMutex
	profiles map[string]packing.Container
}

// NewMemoryStorage initialises storage with the default presets.
func NewMemoryStorage() *MemoryStorage {
	s := &MemoryStorage{profiles: make(map[string]packing.Container, len(defaultProfiles))}
	for _, p := range defaultProfiles {
		s.profiles[p.Name] = p.Container
	}
	return s
}

// DefaultProfiles returns a copy of the built-in presets.
func DefaultProfiles() []Profile {
	out := make([]Profile, len(defaultProfiles))
	copy(out, defaultProfiles)
	return out
}

// ListProfiles returns every preset ordered by name.
func (s *MemoryStorage) ListProfiles() ([]Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, 0, len(s.profiles))
	for name, c := range s.profiles {
		out = append(out, Profile{Name: name, Container: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetProfile looks a preset up by name, case-insensitively.
func (s *MemoryStorage) GetProfile(name string) (Profile, error) {
	key := normalizeName(name)

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return Profile{Name: key, Container: c}, nil
}

// SetProfile validates and stores a preset, replacing any existing one with the same name.
func (s *MemoryStorage) SetProfile(p Profile) error {
	normalized, err := normalizeProfile(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[normalized.Name]; !exists && len(s.profiles) >= maxProfiles {
		return ErrTooManyProfiles
	}
	s.profiles[normalized.Name] = normalized.Container
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeProfile(p Profile) (Profile, error) {
	p.Name = normalizeName(p.Name)
	if !profileName.MatchString(p.Name) {
		return Profile{}, fmt.Errorf("%w: bad name %q", ErrInvalidProfile, p.Name)
	}
	if !p.Size().Valid() || p.MaxWeight < 0 {
		return Profile{}, fmt.Errorf("%w: %q", ErrInvalidProfile, p.Name)
	}
	return p, nil
}
