// Package catalog holds the static DPScript tables that completion and
// signature help are built from: the entity list, irregular plurals, selector
// aliases, selector parameters and selector member descriptors.
//
// Everything here is immutable data. Callers must not modify the exported
// slices.
package catalog
