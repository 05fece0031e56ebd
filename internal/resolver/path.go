package resolver

import "strconv"

// path is the location of a value inside a raw record, rendered as
// dot-joined field names with [i] for sequence elements and [k] for
// mapping entries.
type path string

func (p path) field(name string) path {
	if p == "" {
		return path(name)
	}
	return p + "." + path(name)
}

func (p path) index(i int) path {
	return p + "[" + path(strconv.Itoa(i)) + "]"
}

func (p path) key(k string) path {
	return p + "[" + path(k) + "]"
}

func (p path) String() string {
	return string(p)
}
