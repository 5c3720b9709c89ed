package internal

// Panics if given non-nil error.
// Should be used only for setup failures the tools cannot recover from,
// decoding errors are always returned.
func PanicOnError(err error) {
	if err != nil {
		panic(err)
	}
}
