// Package validation checks configuration structs before they are used to
// build clients, backends and cookie jars.
//
// Struct tag validation uses go-playground/validator; field names in
// messages follow the yaml tag so they match the configuration file:
//
//	type Config struct {
//	    Backend string `yaml:"backend" validate:"required"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic checks collect errors the same way:
//
//	v := validation.New()
//	v.Required("backend", cfg.Backend).OneOf("policy", cfg.Policy, "simple", "publicsuffix")
//	err := v.Err()
package validation
