package profile

// cimHeuristicFields maps a Sigma field name (lower-cased) to its CIM-style
// suggestion, used by Suggest when a profile has CimEnabled set. This is
// the heuristic table named in spec.md §4.2 ("Image -> process", "User ->
// user", ...), independent of the richer category-aware table C3 consults
// during resolution (internal/resolver/cim.go) — Suggest is explicitly a
// coarse, profile-administration-time helper, not part of the resolution
// chain itself.
var cimHeuristicFields = map[string]string{
	"image":             "process",
	"commandline":       "process",
	"parentimage":       "parent_process",
	"parentcommandline": "parent_process",
	"user":              "user",
	"username":          "user",
	"computername":      "dest",
	"hostname":          "dest",
	"destinationip":     "dest_ip",
	"sourceip":          "src_ip",
	"destinationport":   "dest_port",
	"sourceport":        "src_port",
	"targetfilename":    "file_path",
	"targetobject":      "registry_path",
}

// Suggest returns a heuristic sigma_field -> target_field map for fields
// not already covered by the profile's own mappings. It returns an empty
// map when the profile isn't CIM-enabled (spec.md §4.2): this is a
// best-effort administrative aid, never part of the deterministic
// resolution chain.
func (s *Store) Suggest(id string, sigmaFields []string) (map[string]string, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if !p.CimEnabled {
		return out, nil
	}
	for _, field := range sigmaFields {
		if _, mapped := p.Lookup(field); mapped {
			continue
		}
		if target, ok := cimHeuristicFields[lowerASCII(field)]; ok {
			out[field] = target
		}
	}
	return out, nil
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
