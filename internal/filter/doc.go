// Package filter evaluates view filters against tagged objects. It hides
// objects matched by an installed plan filter, and supports ad-hoc
// exclusion by category or by property selector.
//
// The package is built around the [Filter] interface and [Chain] type, which
// allow composable, ordered filter application.
package filter
