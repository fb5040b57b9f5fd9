// Package output provides deterministic YAML/JSON serialization of filter
// plans and output writers.
//
// The package is organized around three concerns:
//
//   - Serialization (serializer.go): Canonical YAML/JSON of a
//     [plan.FilterPlan], and reading a serialized plan back.
//
//   - Formats (registry.go): A [Registry] mapping format names to plan
//     encoders, including the human-readable text forms.
//
//   - Writers (writer.go): Pluggable output destinations via the [Writer]
//     interface, with [StdoutWriter] and an atomically replacing
//     [FileWriter].
package output
