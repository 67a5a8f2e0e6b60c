package scaffold

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnsupportedVersion is returned for an Odoo version outside
// SupportedVersions. It is raised before anything touches the disk.
var ErrUnsupportedVersion = errors.New("unsupported odoo version")

// SupportedVersions lists the Odoo releases that can be scaffolded, newest
// first. The order is the order offered to the user.
var SupportedVersions = []string{"18", "17", "16", "15", "14", "13"}

// postgresFor pins the database image per Odoo release.
var postgresFor = map[string]string{
	"18": "16",
	"17": "16",
	"16": "13",
	"15": "13",
	"14": "13",
	"13": "13",
}

// IsSupported reports whether odoo is a known version.
func IsSupported(odoo string) bool {
	return slices.Contains(SupportedVersions, odoo)
}

// PostgresVersionFor resolves the postgres image tag paired with an Odoo
// version.
func PostgresVersionFor(odoo string) (string, error) {
	pg, ok := postgresFor[odoo]
	if !ok {
		return "", fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedVersion, odoo, SupportedVersions)
	}
	return pg, nil
}
