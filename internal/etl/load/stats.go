package load

// Stats counts loader outcomes per entity type.
type Stats struct {
	PersonsInserted       int `json:"persons_inserted"`
	PersonsUpdated        int `json:"persons_updated"`
	PersonErrors          int `json:"person_errors"`
	LocationsInserted     int `json:"locations_inserted"`
	LocationsUpdated      int `json:"locations_updated"`
	LocationErrors        int `json:"location_errors"`
	OrganizationsInserted int `json:"organizations_inserted"`
	OrganizationErrors    int `json:"organization_errors"`
	MembershipsInserted   int `json:"memberships_inserted"`
	MembershipErrors      int `json:"membership_errors"`
	BenefitsInserted      int `json:"benefits_inserted"`
	BenefitsSkipped       int `json:"benefits_skipped"`
	BenefitErrors         int `json:"benefit_errors"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.PersonsInserted += o.PersonsInserted
	s.PersonsUpdated += o.PersonsUpdated
	s.PersonErrors += o.PersonErrors
	s.LocationsInserted += o.LocationsInserted
	s.LocationsUpdated += o.LocationsUpdated
	s.LocationErrors += o.LocationErrors
	s.OrganizationsInserted += o.OrganizationsInserted
	s.OrganizationErrors += o.OrganizationErrors
	s.MembershipsInserted += o.MembershipsInserted
	s.MembershipErrors += o.MembershipErrors
	s.BenefitsInserted += o.BenefitsInserted
	s.BenefitsSkipped += o.BenefitsSkipped
	s.BenefitErrors += o.BenefitErrors
}

// Errors is the total number of candidates that failed to load.
func (s Stats) Errors() int {
	return s.PersonErrors + s.LocationErrors + s.OrganizationErrors + s.MembershipErrors + s.BenefitErrors
}
