// Package tracking turns raw per-frame hand detections into smoothed,
// role-ordered state for the event detector.
//
// Responsibilities: binding detections to slots (positional or by upstream
// track id), a bounded moving-average window per slot, and velocity from
// consecutive smoothed centers.
//
// No event semantics live here; see internal/detector.
package tracking
