// Package config defines the format-agnostic configuration model of the
// loader and the Loader interface implemented by the format packages.
//
// The Model is the single source of truth for the app package, which turns
// it into plugin options. Concrete loaders for HCL and TOML live in
// separate packages.
package config
