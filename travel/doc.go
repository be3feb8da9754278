// Package travel defines the canonical data model shared by every pipeline
// stage: the normalized user Intent, candidate Plans with ranked Choices,
// tool-result records keyed by option_ref, constraint Violations, and the
// final cited Itinerary. The RunState ties these together for a single run.
//
// Conventions: all monetary values are integer USD cents, all instants carry
// their IANA zone, and optional booleans are the TriState sum type so that
// "unknown" never collapses into "no".
package travel
