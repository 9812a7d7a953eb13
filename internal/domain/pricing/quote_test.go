package pricing

import (
	"testing"

	"enrollment-gateway/internal/domain/courses"
	"enrollment-gateway/internal/domain/enrollment"
	"enrollment-gateway/internal/domain/money"
	"enrollment-gateway/internal/domain/tiers"

	"github.com/stretchr/testify/assert"
)

func course(basic, advanced, premium int64) *courses.Course {
	return &courses.Course{
		ID: "c1",
		Packages: courses.Packages{
			Basic:    &courses.Package{Price: money.FromMajor(basic)},
			Advanced: &courses.Package{Price: money.FromMajor(advanced)},
			Premium:  &courses.Package{Price: money.FromMajor(premium)},
		},
	}
}

func state(status string, pkg tiers.Tier, paid int64) enrollment.State {
	return enrollment.Read(&enrollment.Record{Status: status, Package: string(pkg), AmountPaid: money.FromMajor(paid)})
}

func TestResolve(t *testing.T) {
	c := course(100, 250, 300)

	tests := []struct {
		name   string
		st     enrollment.State
		target tiers.Tier
		want   Quote
	}{
		{
			name:   "not enrolled pays list price",
			st:     enrollment.Read(nil),
			target: tiers.Advanced,
			want:   Quote{Target: tiers.Advanced, Price: money.FromMajor(250)},
		},
		{
			name:   "pending pays list price",
			st:     state("pending", tiers.Basic, 100),
			target: tiers.Premium,
			want:   Quote{Target: tiers.Premium, Price: money.FromMajor(300)},
		},
		{
			name:   "rejected pays list price",
			st:     state("rejected", tiers.Advanced, 250),
			target: tiers.Premium,
			want:   Quote{Target: tiers.Premium, Price: money.FromMajor(300)},
		},
		{
			name:   "advanced to premium credits amount paid",
			st:     state("active", tiers.Advanced, 150),
			target: tiers.Premium,
			want: Quote{
				Target:        tiers.Premium,
				Price:         money.FromMajor(150),
				IsUpgrade:     true,
				OriginalPrice: money.FromMajor(300),
				Paid:          money.FromMajor(150),
			},
		},
		{
			name:   "unrecorded payment falls back to current tier price",
			st:     state("active", tiers.Basic, 0),
			target: tiers.Advanced,
			want: Quote{
				Target:        tiers.Advanced,
				Price:         money.FromMajor(150),
				IsUpgrade:     true,
				OriginalPrice: money.FromMajor(250),
				Paid:          money.FromMajor(100),
			},
		},
		{
			name:   "overpaid owes nothing",
			st:     state("completed", tiers.Basic, 500),
			target: tiers.Premium,
			want: Quote{
				Target:        tiers.Premium,
				Price:         0,
				IsUpgrade:     true,
				OriginalPrice: money.FromMajor(300),
				Paid:          money.FromMajor(500),
			},
		},
		{
			name:   "same tier is not an upgrade",
			st:     state("active", tiers.Advanced, 250),
			target: tiers.Advanced,
			want:   Quote{Target: tiers.Advanced, Price: money.FromMajor(250)},
		},
		{
			name:   "lower tier is not an upgrade",
			st:     state("active", tiers.Premium, 300),
			target: tiers.Basic,
			want:   Quote{Target: tiers.Basic, Price: money.FromMajor(100)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(c, tt.st, tt.target))
		})
	}
}

func TestResolveMalformed(t *testing.T) {
	st := state("active", tiers.Basic, 100)

	assert.Equal(t, Quote{Target: tiers.Premium}, Resolve(nil, st, tiers.Premium))

	partial := &courses.Course{Packages: courses.Packages{Basic: &courses.Package{Price: money.FromMajor(100)}}}
	assert.Equal(t, Quote{Target: tiers.Advanced}, Resolve(partial, st, tiers.Advanced))
	assert.Equal(t, Quote{Target: "gold"}, Resolve(partial, st, "gold"))
}

func TestResolveNeverNegative(t *testing.T) {
	c := course(100, 250, 300)
	for _, status := range []string{"", "pending", "active", "rejected", "completed"} {
		for _, cur := range tiers.Order {
			for _, paid := range []int64{0, 50, 1000} {
				for _, target := range tiers.Order {
					q := Resolve(c, state(status, cur, paid), target)
					assert.GreaterOrEqual(t, int64(q.Price), int64(0))
				}
			}
		}
	}
}

func TestResolveAll(t *testing.T) {
	quotes := ResolveAll(course(100, 250, 300), enrollment.Read(nil))
	if assert.Len(t, quotes, 3) {
		assert.Equal(t, tiers.Basic, quotes[0].Target)
		assert.Equal(t, money.FromMajor(300), quotes[2].Price)
	}
}
