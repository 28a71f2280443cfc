package checks

// carrierKinds are the internal per-file tallies that Aggregate folds into
// metrics. They are persisted in the cache like any other per-file result
// but never reported, and they do not count toward the Fast-mode early
// termination limit.
var carrierKinds = map[string]bool{
	kindSourceLines:  true,
	kindTestLines:    true,
	kindSourceTokens: true,
	kindTestTokens:   true,
	kindEscapeCount:  true,
	kindPlaceholder:  true,
}

// IsCarrier reports whether a violation is an internal metrics carrier.
func IsCarrier(v Violation) bool {
	return carrierKinds[v.Kind]
}
