// Package registry tracks every native library the loader has asked for.
//
// A Handle records the path that was requested, whether loading succeeded
// and the library obtained. Handles are written once during the load
// sequence and read afterwards; they are never unloaded explicitly because
// the host process owns the lifetime of every module it maps, and other
// plugins may share the same library.
package registry
