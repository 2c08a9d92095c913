// Package identity resolves the device identity (the "thing name")
// that keys every shadow topic.
//
// The identity is resolved once at session setup and treated as
// immutable for the process lifetime.
package identity
