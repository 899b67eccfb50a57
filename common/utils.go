package common

// Coalesce picks the first value that is not the zero value of T. Loaders use it to fall back
// from an authored name or rate to a generated default.
//
// Parameters:
//   - candidates: values in order of preference
//
// Returns:
//   - T: the first non-zero candidate, or the zero value when every candidate is zero
func Coalesce[T comparable](candidates ...T) T {
	var zero T
	for _, c := range candidates {
		if c != zero {
			return c
		}
	}
	return zero
}
