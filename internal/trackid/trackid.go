// Package trackid parses catalog track references pasted by members.
package trackid

import (
	"errors"
	"regexp"
	"strings"
)

var ErrNotParseable = errors.New("could not parse a track id; paste a track link, URI, or id")

var (
	bareID = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
	uriID  = regexp.MustCompile(`^[a-z][a-z0-9+.-]*:track:([A-Za-z0-9]{22})$`)
	pathID = regexp.MustCompile(`/track/([A-Za-z0-9]{22})(?:[/?#]|$)`)
)

// Extract accepts a track URL (".../track/<id>?si=..."), a URI of the form
// "<scheme>:track:<id>" or a bare 22-character id and returns the id.
func Extract(input string) (string, error) {
	s := strings.TrimSpace(input)
	if bareID.MatchString(s) {
		return s, nil
	}
	if m := uriID.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if strings.Contains(s, "://") {
		if m := pathID.FindStringSubmatch(s); m != nil {
			return m[1], nil
		}
	}
	return "", ErrNotParseable
}

// Valid reports whether id has the shape of a catalog track id.
func Valid(id string) bool {
	return bareID.MatchString(id)
}
