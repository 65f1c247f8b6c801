package ulid

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULID is a lexicographically sortable unique identifier, used here for
// subscription handles and request ids.
type ULID struct {
	ulid.ULID `json:"-"`
}

// New generates a new ULID with the current timestamp
func New() ULID {
	return ULID{ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)}
}

// Parse parses a ULID string and returns a ULID
func Parse(s string) (ULID, error) {
	parsed, err := ulid.Parse(s)
	if err != nil {
		return ULID{}, err
	}
	return ULID{parsed}, nil
}

// String returns the string representation of the ULID
func (u ULID) String() string {
	return u.ULID.String()
}

// Time returns the timestamp portion of the ULID
func (u ULID) Time() time.Time {
	return ulid.Time(u.ULID.Time())
}

// IsZero returns true if the ULID is zero-valued
func (u ULID) IsZero() bool {
	return u.ULID == ulid.ULID{}
}

// MarshalJSON implements the json.Marshaler interface
func (u ULID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + u.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (u *ULID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("invalid JSON for ULID: %s", string(data))
	}

	str := string(data[1 : len(data)-1])
	if str == "null" || str == "" {
		*u = ULID{}
		return nil
	}

	parsed, err := Parse(str)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface
func (u ULID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (u *ULID) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
