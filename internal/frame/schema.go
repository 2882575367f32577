package frame

// Schema is a set of available column names.
type Schema map[string]struct{}

// NewSchema builds a schema from names.
func NewSchema(names ...string) Schema {
	s := make(Schema, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Contains reports membership.
func (s Schema) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Available returns the desired names present in the schema, preserving the
// desired order and dropping duplicates.
func Available(available Schema, desired []string) []string {
	out := make([]string, 0, len(desired))
	seen := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		if available.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}
