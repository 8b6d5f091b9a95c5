// Package subgraph holds reusable graph templates and inlines them.
//
// A template is a GraphConfig registered under its Type. Any node whose
// calculator names a registered template is replaced, recursively, by the
// template's nodes. Names internal to an instance are prefixed with a
// per-instance identifier; names on the template's declared boundary are
// rewritten to whatever the calling node bound at the same port.
package subgraph
