// Package version provides version information for the application.
//
// This package defines version constants and utilities for accessing version
// information throughout the application. It centralizes version management
// to ensure consistent version reporting across all components.
package version
