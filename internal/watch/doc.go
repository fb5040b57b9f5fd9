// Package watch re-runs plan generation whenever a watched model file
// changes. It debounces rapid editor events and reports how the plan moved
// between consecutive generations.
package watch
