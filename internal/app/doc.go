// Package app contains the core application logic. It loads a loader
// configuration, wires it into a plugin, drives the plugin through a
// simulated host session and optionally serves diagnostics, decoupled from
// any specific entrypoint like a CLI.
package app
