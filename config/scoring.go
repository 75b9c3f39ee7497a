package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Dosada05/tennis-standings/scoring"
)

// ScoringConfig is the scheme catalogue. Matches pick a scheme by the home
// team's division and fall back to Default.
type ScoringConfig struct {
	Default    string                    `yaml:"default"`
	Schemes    map[string]scoring.Scheme `yaml:"schemes"`
	ByDivision map[string]string         `yaml:"by_division"`
}

// DefaultScoring is used when no SCORING_CONFIG_PATH is given.
func DefaultScoring() *ScoringConfig {
	ncaa := scoring.NCAADualMatch()
	return &ScoringConfig{
		Default: ncaa.Name,
		Schemes: map[string]scoring.Scheme{ncaa.Name: ncaa},
	}
}

// LoadScoring reads a YAML scheme catalogue. The built-in ncaa_dual scheme is
// always available unless the file redefines it.
func LoadScoring(path string) (*ScoringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading scoring config: %w", err)
	}
	return ParseScoring(data)
}

func ParseScoring(data []byte) (*ScoringConfig, error) {
	var sc ScoringConfig
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("error parsing scoring config: %w", err)
	}

	ncaa := scoring.NCAADualMatch()
	if sc.Schemes == nil {
		sc.Schemes = make(map[string]scoring.Scheme)
	}
	if _, ok := sc.Schemes[ncaa.Name]; !ok {
		sc.Schemes[ncaa.Name] = ncaa
	}
	for name, s := range sc.Schemes {
		s.Name = name
		if s.DoublesMode == "" {
			s.DoublesMode = scoring.DoublesPerSlot
		}
		sc.Schemes[name] = s
	}
	if sc.Default == "" {
		sc.Default = ncaa.Name
	}

	// Divisions are matched without regard to case, so "JUCO" and "juco"
	// must not both be listed.
	byDivision := make(map[string]string, len(sc.ByDivision))
	for division, name := range sc.ByDivision {
		key := normalizeDivision(division)
		if prev, dup := byDivision[key]; dup && prev != name {
			return nil, fmt.Errorf("invalid scoring config: division %q is listed twice with schemes %q and %q", division, prev, name)
		}
		byDivision[key] = name
	}
	sc.ByDivision = byDivision

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	return &sc, nil
}

func (c *ScoringConfig) Validate() error {
	if _, ok := c.Schemes[c.Default]; !ok {
		return fmt.Errorf("default scheme %q is not defined", c.Default)
	}
	names := make([]string, 0, len(c.Schemes))
	for name := range c.Schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Schemes[name].Validate(); err != nil {
			return fmt.Errorf("scheme %q: %w", name, err)
		}
	}
	for division, name := range c.ByDivision {
		if _, ok := c.Schemes[name]; !ok {
			return fmt.Errorf("division %q refers to unknown scheme %q", division, name)
		}
	}
	return nil
}

// SchemeFor returns the scheme for a division. Division matching ignores case.
func (c *ScoringConfig) SchemeFor(division string) scoring.Scheme {
	if name, ok := c.ByDivision[normalizeDivision(division)]; ok && division != "" {
		return c.Schemes[name]
	}
	return c.Schemes[c.Default]
}

func normalizeDivision(division string) string {
	return strings.ToLower(strings.TrimSpace(division))
}
