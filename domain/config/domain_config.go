package config

// DomainConfig holds the business rules for notes and the derived graph.
type DomainConfig struct {
	// Grid layout of the materialized graph
	GridColumns  int
	GridSpacingX float64
	GridSpacingY float64
	GridOffsetX  float64
	GridOffsetY  float64

	// Note constraints
	MinMood         int
	MaxMood         int
	DefaultMood     int
	DefaultTitle    string
	MaxTitleLength  int
	MaxLinksPerNote int

	// Link rules
	AllowSelfLinks bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		GridColumns:  4,
		GridSpacingX: 300,
		GridSpacingY: 200,
		GridOffsetX:  100,
		GridOffsetY:  100,

		MinMood:         1,
		MaxMood:         10,
		DefaultMood:     5,
		DefaultTitle:    "Untitled Note",
		MaxTitleLength:  500,
		MaxLinksPerNote: 1000,

		AllowSelfLinks: false,
	}
}

// LoadDomainConfig returns the domain configuration for an environment.
// Development relaxes the size limits; the layout and link rules are the
// same everywhere.
func LoadDomainConfig(environment string) *DomainConfig {
	cfg := DefaultDomainConfig()
	if environment == "development" {
		cfg.MaxTitleLength = 10000
		cfg.MaxLinksPerNote = 100000
	}
	return cfg
}
