// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `LoadFrom` calls `validateStruct` immediately after it unmarshals and
// defaults the merged Koanf tree.  Any tag mismatch aborts startup, so the
// binary never runs with partial or malformed configuration.
//
// Cross-field rules (`required_if`) cover the Route53 block; everything
// else is a plain per-field tag.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the validation errors, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
