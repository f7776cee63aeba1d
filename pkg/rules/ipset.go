package rules

import "sort"

// IPSet is an immutable set of client IPs. A nil IPSet contains nothing.
type IPSet map[string]struct{}

// NewIPSet builds a set from ips.
func NewIPSet(ips ...string) IPSet {
	s := make(IPSet, len(ips))
	for _, ip := range ips {
		s[ip] = struct{}{}
	}
	return s
}

// Contains reports whether ip is in the set.
func (s IPSet) Contains(ip string) bool {
	_, ok := s[ip]
	return ok
}

// Sorted returns the members in ascending order.
func (s IPSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for ip := range s {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out
}
