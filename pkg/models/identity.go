package models

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrMalformedIdentity is returned when a filename does not carry exactly the
// composer, piece and performer tokens.
var ErrMalformedIdentity = errors.New("malformed recording identity")

// identityTokens is the number of underscore-delimited tokens in a filename.
const identityTokens = 3

// Identity is the (composer, piece, performer) triple embedded in a
// recording's filename, e.g. "bach_cello-suite-1_yo-yo-ma.wav".
type Identity struct {
	Composer  string `json:"composer" msgpack:"composer"`
	Piece     string `json:"piece" msgpack:"piece"`
	Performer string `json:"performer" msgpack:"performer"`
}

// ParseIdentity extracts the identity from a filename. The directory and
// everything from the first '.' of the base name are ignored.
func ParseIdentity(filename string) (Identity, error) {
	base := filepath.Base(filename)
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}

	parts := strings.Split(base, "_")
	if len(parts) != identityTokens {
		return Identity{}, fmt.Errorf("%q: expected %d tokens, got %d: %w", filename, identityTokens, len(parts), ErrMalformedIdentity)
	}
	for i, p := range parts {
		if p == "" {
			return Identity{}, fmt.Errorf("%q: token %d is empty: %w", filename, i, ErrMalformedIdentity)
		}
	}

	return Identity{Composer: parts[0], Piece: parts[1], Performer: parts[2]}, nil
}

// Matches reports whether two recordings are performances of the same piece.
func (id Identity) Matches(other Identity) bool {
	return id.Composer == other.Composer && id.Piece == other.Piece
}

// Less orders identities by composer, then piece, then performer.
func (id Identity) Less(other Identity) bool {
	if id.Composer != other.Composer {
		return id.Composer < other.Composer
	}
	if id.Piece != other.Piece {
		return id.Piece < other.Piece
	}
	return id.Performer < other.Performer
}

func (id Identity) String() string {
	return id.Composer + "_" + id.Piece + "_" + id.Performer
}
