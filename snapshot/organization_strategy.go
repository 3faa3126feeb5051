package snapshot

import (
	"time"

	"github.com/quorumnet/watchtower/monitor"
)

// OrganizationStrategy supplies the organization-specific reconciliation
// rules. It keeps a reference to the store because archival eligibility
// depends on whether any tracked node still claims the organization.
type OrganizationStrategy struct {
	store Store
}

// NewOrganizationStrategy ...
func NewOrganizationStrategy(store Store) *OrganizationStrategy {
	return &OrganizationStrategy{store: store}
}

// Kind implements the Strategy interface.
func (st *OrganizationStrategy) Kind() Kind {
	return KindOrganization
}

// NaturalKey implements the Strategy interface.
func (st *OrganizationStrategy) NaturalKey(org *monitor.Organization) (string, error) {
	if err := monitor.ValidateOrganizationID(org.ID); err != nil {
		return "", err
	}
	return org.ID, nil
}

// Build implements the Strategy interface.
func (st *OrganizationStrategy) Build(versioned *VersionedEntity, org *monitor.Organization, at time.Time) *Snapshot {
	return &Snapshot{
		Entity:       versioned,
		StartDate:    at,
		Organization: organizationVersion(org),
	}
}

// BuildNext implements the Strategy interface.
func (st *OrganizationStrategy) BuildNext(current *Snapshot, org *monitor.Organization, at time.Time) *Snapshot {
	return &Snapshot{
		Entity:       current.Entity,
		StartDate:    at,
		Organization: organizationVersion(org),
	}
}

// HasChanged implements the Strategy interface. Availability and toml errors
// are measurements, not versioned attributes, so only the descriptive fields
// and declared validators open new versions.
func (st *OrganizationStrategy) HasChanged(current *Snapshot, org *monitor.Organization) bool {
	return current.Organization.DetailsHash != org.DetailsHash()
}

// Suppress implements the Strategy interface. Organizations have no
// suppression rule.
func (st *OrganizationStrategy) Suppress(current *Snapshot, org *monitor.Organization, at time.Time) bool {
	return false
}

// Archivable implements the Strategy interface. An unobserved organization
// is gone when none of the currently tracked nodes claims it anymore.
func (st *OrganizationStrategy) Archivable(current *Snapshot, at time.Time) bool {
	nodes, err := st.store.Active(KindNode)
	if err != nil {
		return false
	}
	for _, snap := range nodes {
		if snap.Node.OrganizationID == current.Entity.NaturalKey {
			return false
		}
	}
	return true
}

func organizationVersion(org *monitor.Organization) *OrganizationVersion {
	return &OrganizationVersion{
		DetailsHash: org.DetailsHash(),
		Name:        org.Name,
		HomeDomain:  org.HomeDomain,
		URL:         org.URL,
		Mail:        org.Mail,
		Description: org.Description,
		Validators:  append([]string{}, org.Validators...),
	}
}
