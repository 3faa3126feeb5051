package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/quorumnet/watchtower/monitor"
)

// NetworkProvider produces one full scan of the watched network. The
// crawling protocol is not our concern; a provider is an external
// collaborator that hands over the observed nodes, organizations and
// aggregate statistics.
type NetworkProvider interface {
	Scan(previous *monitor.Network) (*monitor.Network, error)
}

// FileProvider reads scans from a JSON file maintained by an external
// crawler process. The file is re-read on every cycle.
type FileProvider struct {
	path string
}

// NewFileProvider ...
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Scan implements the NetworkProvider interface.
func (p *FileProvider) Scan(previous *monitor.Network) (*monitor.Network, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading scan file: %v", err)
	}

	network := new(monitor.Network)
	if err := json.Unmarshal(data, network); err != nil {
		return nil, fmt.Errorf("parsing scan file %s: %v", p.path, err)
	}

	if network.Time.IsZero() {
		network.Time = time.Now().UTC()
	}
	if network.Statistics != nil && network.Statistics.Time.IsZero() {
		network.Statistics.Time = network.Time
	}

	return network, nil
}
