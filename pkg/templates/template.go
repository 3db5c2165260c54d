package templates

import (
	"fmt"
	"image"
)

// Role describes what a template is used for
type Role int

const (
	RoleOther           Role = iota // loaded but not consulted by any rule
	RoleIndicator                   // identifies the current state
	RoleContraindicator             // disqualifies the current attempt on match
	RoleCheckMember                 // one acceptable option of a numbered check group
	RoleCatalogEntry                // a previously seen screen in the novelty catalog
	RoleMarker                      // expected outcome of a named macro
)

// String returns human-readable role name
func (r Role) String() string {
	switch r {
	case RoleIndicator:
		return "Indicator"
	case RoleContraindicator:
		return "Contraindicator"
	case RoleCheckMember:
		return "CheckMember"
	case RoleCatalogEntry:
		return "CatalogEntry"
	case RoleMarker:
		return "Marker"
	default:
		return "Other"
	}
}

// Template is a decoded reference image plus the metadata derived from its
// file name. Templates are never mutated after loading.
type Template struct {
	ID    string // file name, including extension
	Path  string
	Role  Role
	State string // state token from the closed vocabulary, "" if none
	Group int    // check group number, only for RoleCheckMember
	Image *image.RGBA
}

// LoadError reports an asset that could not be read or decoded. It is fatal:
// the bot has no degraded mode without its full template set.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load template %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
