package monitor

import (
	"fmt"
	"strings"
	"time"
)

// Node is one observed node of the network, as reported by the crawler for a
// single scan. It carries the node's current configuration and the boolean
// health flags that are turned into measurements.
type Node struct {
	// PublicKey is the node's natural key. It is assigned by the network,
	// not by us, and is expected to be a 56 character string starting with
	// 'G'.
	PublicKey string

	// Address is the ip:port the node was reached at.
	Address string

	QuorumSet *QuorumSet
	Geo       *Geo
	Details   *NodeDetails

	// OrganizationID links the node to an organization, or is empty.
	OrganizationID string

	// Health flags for this scan.
	Active            bool
	Validating        bool
	HistoryUpToDate   bool
	HistoryError      bool
	ConnectivityError bool
	CoreVersionBehind bool
	OverLoaded        bool
	ObservedAt        time.Time
}

// ValidatePublicKey checks the shape of a node's natural key. A malformed key
// makes the node unusable as a versioned entity but must not abort the scan.
func ValidatePublicKey(publicKey string) error {
	if len(publicKey) != 56 {
		return fmt.Errorf("public key %q: length %d, expected 56", publicKey, len(publicKey))
	}
	if !strings.HasPrefix(publicKey, "G") {
		return fmt.Errorf("public key %q: missing G prefix", publicKey)
	}
	return nil
}

// DisplayName returns the node's configured name, falling back to a truncated
// public key.
func (n *Node) DisplayName() string {
	if n.Details != nil && n.Details.Name != "" {
		return n.Details.Name
	}
	if len(n.PublicKey) > 10 {
		return n.PublicKey[:10]
	}
	return n.PublicKey
}

// Geo is the geographic location of a node. Shared by value across snapshots;
// identity is the content hash.
type Geo struct {
	CountryCode string
	CountryName string
	Latitude    float64
	Longitude   float64
	ISP         string
}

// Hash returns the content hash identifying this geo record.
func (g *Geo) Hash() string {
	if g == nil {
		return ""
	}
	return hashValue(g)
}

// NodeDetails are the free-form fields a node operator publishes about a
// node. Shared by value across snapshots; identity is the content hash.
type NodeDetails struct {
	Name       string
	Host       string
	HomeDomain string
	Version    string
	Alias      string
	HistoryURL string
}

// Hash returns the content hash identifying this details record.
func (d *NodeDetails) Hash() string {
	if d == nil {
		return ""
	}
	return hashValue(d)
}
