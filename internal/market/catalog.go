package market

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Instruments []struct {
		ID   string `yaml:"id"`
		Slug string `yaml:"slug"`
	} `yaml:"instruments"`
}

// LoadCatalog reads an instrument catalog exported from the trading framework.
func LoadCatalog(path string) ([]Instrument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	out := make([]Instrument, 0, len(file.Instruments))
	for _, inst := range file.Instruments {
		if inst.ID == "" || inst.Slug == "" {
			continue
		}
		out = append(out, Instrument{ID: inst.ID, Slug: inst.Slug})
	}
	return out, nil
}

// GenerateCatalog fabricates a rotating catalog of count back-to-back markets
// starting at the interval boundary containing from. Used with the stub feed
// for offline runs.
func GenerateCatalog(slugPrefix string, from time.Time, count int, interval time.Duration) []Instrument {
	if count <= 0 {
		count = 8
	}
	start := from.UTC().Truncate(interval)
	out := make([]Instrument, 0, count*2)
	for i := 0; i < count; i++ {
		ts := start.Add(time.Duration(i) * interval).Unix()
		slug := fmt.Sprintf("%s-%d", slugPrefix, ts)
		out = append(out,
			Instrument{ID: fmt.Sprintf("%s-yes%d", slug, i), Slug: slug},
			Instrument{ID: fmt.Sprintf("%s-no%d", slug, i), Slug: slug},
		)
	}
	return out
}
