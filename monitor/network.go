package monitor

import "time"

// Network is the full result of one crawler scan: every observed node and
// organization, plus the aggregate statistics computed by the quorum
// analyzer.
type Network struct {
	// ID identifies the network being watched, eg. a passphrase hash.
	ID   string
	Name string

	// Time is the scan time. All snapshots and measurements produced from
	// this network carry this time.
	Time time.Time

	Nodes         []*Node
	Organizations []*Organization

	Statistics *NetworkStatistics
}

// NodeByPublicKey returns the observed node with the given public key, or
// nil.
func (n *Network) NodeByPublicKey(publicKey string) *Node {
	for _, node := range n.Nodes {
		if node.PublicKey == publicKey {
			return node
		}
	}
	return nil
}

// OrganizationByID returns the observed organization with the given id, or
// nil.
func (n *Network) OrganizationByID(id string) *Organization {
	for _, org := range n.Organizations {
		if org.ID == id {
			return org
		}
	}
	return nil
}

// NodeDisplayName resolves a public key to a display name, falling back to
// the truncated key when the node is not part of this scan.
func (n *Network) NodeDisplayName(publicKey string) string {
	if node := n.NodeByPublicKey(publicKey); node != nil {
		return node.DisplayName()
	}
	if len(publicKey) > 10 {
		return publicKey[:10]
	}
	return publicKey
}
