// Package core contains the field-mapping engine: mapping rule contracts, the
// dot-path accessor, the closed transform table, the rule cache with version
// resolution, and the engine that applies a rule set to a record. Storage
// adapters live in sibling packages and depend on core; core never depends on
// a concrete rule store.
package core
