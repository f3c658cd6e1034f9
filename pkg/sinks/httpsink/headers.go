package httpsink

import (
	"net/http"
	"sort"
)

// Header is a single request header.
type Header struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

// Headers is an ordered list of request headers. Order is preserved when
// the headers are applied to a request.
type Headers []Header

// HeadersFromMap converts a map to Headers sorted by name, which keeps
// requests reproducible when the source has no order.
func HeadersFromMap(m map[string]string) Headers {
	if len(m) == 0 {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	h := make(Headers, 0, len(m))
	for _, name := range names {
		h = append(h, Header{Name: name, Value: m[name]})
	}
	return h
}

// Set replaces the value of an existing header (matched
// case-insensitively) in place, or appends a new one.
func (h *Headers) Set(name, value string) {
	key := http.CanonicalHeaderKey(name)
	for i := range *h {
		if http.CanonicalHeaderKey((*h)[i].Name) == key {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Name: name, Value: value})
}

// Get returns the value of the first header named name.
func (h Headers) Get(name string) (string, bool) {
	key := http.CanonicalHeaderKey(name)
	for _, hd := range h {
		if http.CanonicalHeaderKey(hd.Name) == key {
			return hd.Value, true
		}
	}
	return "", false
}

// Names returns header names in order.
func (h Headers) Names() []string {
	names := make([]string, len(h))
	for i, hd := range h {
		names[i] = hd.Name
	}
	return names
}

// apply adds the headers to hdr in order.
func (h Headers) apply(hdr http.Header) {
	for _, hd := range h {
		hdr.Add(hd.Name, hd.Value)
	}
}
