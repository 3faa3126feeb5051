package monitor

import (
	"fmt"
	"sort"
	"time"
)

// Organization is one observed organization of the network: a named operator
// of one or more validators, discovered through published metadata.
type Organization struct {
	// ID is the organization's natural key.
	ID string

	Name        string
	HomeDomain  string
	URL         string
	Mail        string
	Description string

	// Validators are the public keys of the nodes the organization declares.
	Validators []string

	// Health flags for this scan. Available means a subquorum of the
	// organization's validators is up and validating. TomlError means the
	// published metadata could not be fetched or parsed.
	Available  bool
	TomlError  bool
	ObservedAt time.Time
}

// ValidateOrganizationID checks the shape of an organization's natural key.
func ValidateOrganizationID(id string) error {
	if id == "" {
		return fmt.Errorf("organization id is empty")
	}
	return nil
}

// DisplayName returns the organization's name, falling back to its id.
func (o *Organization) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	return o.ID
}

// DetailsHash returns the content hash of the organization's descriptive
// fields and declared validators. Validator order does not affect the hash.
func (o *Organization) DetailsHash() string {
	validators := append([]string{}, o.Validators...)
	sort.Strings(validators)
	return hashValue(struct {
		Name        string
		HomeDomain  string
		URL         string
		Mail        string
		Description string
		Validators  []string
	}{o.Name, o.HomeDomain, o.URL, o.Mail, o.Description, validators})
}
