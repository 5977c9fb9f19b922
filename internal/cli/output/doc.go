// Package output renders command results for nodestore-cli.
//
// Three formats are supported: table (aligned columns via text/tabwriter),
// json (indented, HTML left unescaped) and yaml (gopkg.in/yaml.v3).
// Node values are arbitrary JSON, so table cells holding objects or
// arrays are printed as compact JSON.
package output
