//go:build noassert

package assert

// On reports whether assertion checks are compiled in. It is false when
// building with the noassert tag.
const On = false
