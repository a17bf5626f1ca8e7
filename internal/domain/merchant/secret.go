package merchant

// Secret is a plaintext credential. It never prints its value.
type Secret string

// Reveal returns the plaintext value for use on the wire.
func (s Secret) Reveal() string {
	return string(s)
}

// IsEmpty returns true if no value is present
func (s Secret) IsEmpty() bool {
	return s == ""
}

// String implements fmt.Stringer and redacts the value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString redacts the value for %#v.
func (s Secret) GoString() string {
	return s.String()
}

// SealedSecret is the encrypted at-rest form of a Secret.
type SealedSecret []byte

// IsEmpty returns true if nothing is stored
func (s SealedSecret) IsEmpty() bool {
	return len(s) == 0
}
