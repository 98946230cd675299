package models

// Role represents a user's system-wide role. Admins, curators and users are
// actual people who authenticate with a token from the identity provider.
// Visitor is assigned to the dummy user authenticated with the shared API key.
type Role string

const (
	RoleAdmin   Role = "Admin"   // curator + can change the roles of other users
	RoleCurator Role = "Curator" // user + can edit and approve signals and trends
	RoleUser    Role = "User"    // visitor + can submit signals
	RoleVisitor Role = "Visitor" // can only view approved signals and trends
)

// Status represents a signal/trend review status. Transitions are driven by
// editors, there is no automatic state machine.
type Status string

const (
	StatusDraft    Status = "Draft"
	StatusNew      Status = "New"
	StatusApproved Status = "Approved"
	StatusArchived Status = "Archived"
)

// Steep categories in terms of the STEEP+V analysis methodology.
const (
	SteepSocial        = "Social – Issues related to human culture, demography, communication, movement and migration, work and education"
	SteepTechnological = "Technological – Made culture, tools, devices, systems, infrastructure and networks"
	SteepEconomic      = "Economic – Issues of value, money, financial tools and systems, business and business models, exchanges and transactions"
	SteepEnvironmental = "Environmental – The natural world, living environment, sustainability, resources, climate and health"
	SteepPolitical     = "Political – Legal issues, policy, governance, rules and regulations and organizational systems"
	SteepValues        = "Values – Ethics, spirituality, ideology or other forms of values"
)

// Signature Solutions of the United Nations Development Programme.
const (
	SignaturePoverty        = "Poverty and Inequality"
	SignatureGovernance     = "Governance"
	SignatureResilience     = "Resilience"
	SignatureEnvironment    = "Environment"
	SignatureEnergy         = "Energy"
	SignatureGender         = "Gender Equality"
	SignatureInnovation     = "Strategic Innovation"
	SignatureDigitalisation = "Digitalisation"
	SignatureFinancing      = "Development Financing"
)

// Horizon values for trend impact horizons.
const (
	HorizonShort  = "Horizon 1 (0-3 years)"
	HorizonMedium = "Horizon 2 (3-7 years)"
	HorizonLong   = "Horizon 3 (7-10 years)"
)

// Rating values for trend impact ratings.
const (
	RatingLow      = "1 – Low"
	RatingModerate = "2 – Moderate"
	RatingHigh     = "3 – Significant"
)

// IsAdmin reports whether the role is Admin.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// IsStaff reports whether the role is Curator or Admin.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleCurator
}

// IsRegular reports whether the role belongs to a real logged-in user,
// as opposed to the API-key visitor.
func (r Role) IsRegular() bool {
	return r == RoleAdmin || r == RoleCurator || r == RoleUser
}
