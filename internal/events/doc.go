// Package events owns the event timeline: the four assembly-cycle event
// kinds, the append-only per-kind log the detector commits to, and the JSON
// artifact consumed by offline analysis.
//
// The artifact is an object keyed by kind name whose values are arrays of
// seconds in commit order:
//
//	{
//	    "pick_up": [5.63, 9.9],
//	    "probe_pass": [6.53],
//	    "marking": [],
//	    "place_in_box": [8.97, 12.8]
//	}
package events
