// Package radio holds the station catalog.
package radio

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed stations.yml
var defaultCatalog []byte

// MaxChoices is the Discord limit on slash command option choices.
const MaxChoices = 25

// Station is one entry of the catalog.
type Station struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Type string `yaml:"type"`
}

// Catalog is an ordered, name-unique list of stations.
type Catalog struct {
	stations []Station
	byName   map[string]int
}

// ErrUnknownStation is returned by Lookup for names not in the catalog.
var ErrUnknownStation = errors.New("unknown station")

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read station catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("station catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML station list.
func Parse(data []byte) (*Catalog, error) {
	var stations []Station
	if err := yaml.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("failed to parse station catalog: %w", err)
	}

	c := &Catalog{byName: make(map[string]int, len(stations))}
	for i, s := range stations {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("station #%d has no name", i+1)
		}
		if _, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate station name %q", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("station %q has invalid url %q", s.Name, s.URL)
		}
		if s.Type == "" {
			s.Type = "arbitrary"
		}
		c.byName[s.Name] = len(c.stations)
		c.stations = append(c.stations, s)
	}
	if len(c.stations) == 0 {
		return nil, errors.New("station catalog is empty")
	}
	return c, nil
}

// Lookup finds a station by exact name.
func (c *Catalog) Lookup(name string) (Station, error) {
	i, ok := c.byName[name]
	if !ok {
		return Station{}, fmt.Errorf("%w: %q", ErrUnknownStation, name)
	}
	return c.stations[i], nil
}

// Stations returns a copy of the catalog in order.
func (c *Catalog) Stations() []Station {
	out := make([]Station, len(c.stations))
	copy(out, c.stations)
	return out
}

// Len returns the number of stations.
func (c *Catalog) Len() int { return len(c.stations) }

// ChoiceNames returns at most MaxChoices station names, in order.
func (c *Catalog) ChoiceNames() []string {
	n := min(len(c.stations), MaxChoices)
	out := make([]string, n)
	for i := range n {
		out[i] = c.stations[i].Name
	}
	return out
}
