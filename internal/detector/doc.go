// Package detector turns per-frame hand detections into assembly-cycle
// events.
//
// Each frame is bound into role-ordered slots and smoothed by the tracking
// package. The first two slots are the primary and secondary hands. A fixed
// rule table is then evaluated in kind order (pick_up, probe_pass, marking,
// place_in_box). A kind is committed only when the cycle gate allows it, its
// own cooldown and any coupled cooldowns have elapsed, and its motion
// predicate matches. Later rules in the same frame see earlier commits.
//
// The cycle gate is derived from the event log alone: a pick_up opens a cycle
// and a place_in_box closes it.
package detector
