package courses

import (
	"bytes"
	"encoding/json"
	"time"

	"enrollment-gateway/internal/domain/money"
	"enrollment-gateway/internal/domain/tiers"
)

// RefID is a remote identifier. The API is not consistent about sending ids
// as strings or numbers, so both are accepted.
type RefID string

func (id *RefID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = RefID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = RefID(n.String())
	return nil
}

type Package struct {
	Price    money.Amount `json:"price"`
	Features []string     `json:"features"`
}

type Packages struct {
	Basic    *Package `json:"basic,omitempty"`
	Advanced *Package `json:"advanced,omitempty"`
	Premium  *Package `json:"premium,omitempty"`
}

func (p Packages) For(t tiers.Tier) (Package, bool) {
	var pkg *Package
	switch t {
	case tiers.Basic:
		pkg = p.Basic
	case tiers.Advanced:
		pkg = p.Advanced
	case tiers.Premium:
		pkg = p.Premium
	}
	if pkg == nil {
		return Package{}, false
	}
	return *pkg, true
}

type Course struct {
	ID           RefID     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Title        string    `json:"title"`
	InstructorID RefID     `gorm:"column:instructor_id;type:varchar(64);index" json:"instructor_id"`
	Packages     Packages  `gorm:"serializer:json" json:"packages"`
	SyncedAt     time.Time `gorm:"column:synced_at" json:"-"`
}

// PriceOf is nil-safe and returns 0 for a missing package.
func (c *Course) PriceOf(t tiers.Tier) money.Amount {
	if c == nil {
		return 0
	}
	pkg, ok := c.Packages.For(t)
	if !ok {
		return 0
	}
	return pkg.Price
}

// HasPackage reports whether the course offers tier t.
func (c *Course) HasPackage(t tiers.Tier) bool {
	if c == nil {
		return false
	}
	_, ok := c.Packages.For(t)
	return ok
}
