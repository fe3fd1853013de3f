package types

// Metadata is a map of key-value pairs attached to payments and audit events
type Metadata map[string]string

// Merge returns a copy of the metadata with the other map merged in,
// the other map winning on key collisions
func (m Metadata) Merge(other Metadata) Metadata {
	merged := make(Metadata, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
