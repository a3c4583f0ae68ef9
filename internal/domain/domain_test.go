package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoney_ApplyRate(t *testing.T) {
	tests := []struct {
		name string
		m    Money
		bps  int
		want Money
	}{
		{"sixteen percent", 10000, 1600, 1600},
		{"rounds half up", 5, 1000, 1},
		{"rounds down below half", 4, 1000, 0},
		{"negative rounds away from zero", -5, 1000, -1},
		{"zero rate", 12345, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.ApplyRate(tt.bps))
		})
	}
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "12.05", Money(1205).String())
	assert.Equal(t, "-0.50", Money(-50).String())
	assert.Equal(t, "0.00", Money(0).String())
}

func TestPage(t *testing.T) {
	p, s := Page(0, 0)
	assert.Equal(t, 1, p)
	assert.Equal(t, 20, s)

	p, s = Page(3, 500)
	assert.Equal(t, 3, p)
	assert.Equal(t, 20, s)

	assert.Equal(t, 3, TotalPages(41, 20))
	assert.Equal(t, 0, TotalPages(0, 20))
}

func TestRole(t *testing.T) {
	assert.True(t, RolePharmacist.IsValid())
	assert.False(t, Role("janitor").IsValid())
	assert.True(t, RoleNurse.IsClinician())
	assert.False(t, RoleCashier.IsClinician())
}
