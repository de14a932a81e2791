package entitlement

import "net/url"

// Schemes are the URL schemes a server may open on the client.
type Schemes struct {
	names []string
	set   map[string]struct{}
}

func (s *Schemes) Permit(scheme string) {
	if s.set == nil {
		s.set = map[string]struct{}{}
	}
	if _, ok := s.set[scheme]; ok {
		return
	}
	s.set[scheme] = struct{}{}
	s.names = append(s.names, scheme)
}

// Permitted reports whether rawURL's scheme was permitted. The comparison is exact.
func (s *Schemes) Permitted(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return false
	}
	_, ok := s.set[u.Scheme]
	return ok
}

func (s *Schemes) All() []string {
	return append([]string(nil), s.names...)
}

func (s *Schemes) serialize() []SerializedScheme {
	out := make([]SerializedScheme, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, SerializedScheme{Scheme: name})
	}
	return out
}
