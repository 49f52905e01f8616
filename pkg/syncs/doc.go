// Package syncs provides synchronization primitives for coordinating
// concurrent fetch and deploy operations.
//
// This package implements concurrency control mechanisms to facilitate safe
// concurrent operations throughout the application.
package syncs
