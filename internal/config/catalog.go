package config

// CatalogConfig locates the addon catalog.
type CatalogConfig struct {
	// Local checkout of the catalog
	Path string `yaml:"path"`

	// Repository cloned when Path does not exist
	Repository string `yaml:"repository"`

	// Appended to the Odoo version to form the branch ("17" + ".0")
	BranchSuffix string `yaml:"branch_suffix"`

	// File whose presence marks a directory as a single addon
	Marker string `yaml:"marker"`
}

// ScaffoldConfig configures project generation.
type ScaffoldConfig struct {
	// Default Odoo version offered first in the prompt
	DefaultVersion string `yaml:"default_version"`

	// Mode passed to chmod -R for addons, custom_addons and data ("" disables)
	OpenPermissions string `yaml:"open_permissions"`
}
