// Package hcl provides the HCL implementation of the config.Loader
// interface. A file is decoded in two passes: the plugin block first, then
// everything else with an evaluation context that exposes plugin.name and
// plugin.version for interpolation into library paths.
package hcl
