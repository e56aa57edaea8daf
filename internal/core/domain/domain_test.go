package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func int32Ptr(v int32) *int32 { return &v }

func TestDealActiveNow(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	base := Deal{
		IsActive: true,
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
	}

	t.Run("inside window", func(t *testing.T) {
		d := base
		assert.True(t, d.ActiveNow(now))
	})

	t.Run("boundaries are inclusive", func(t *testing.T) {
		d := base
		assert.True(t, d.ActiveNow(d.StartsAt))
		assert.True(t, d.ActiveNow(d.EndsAt))
	})

	t.Run("before window", func(t *testing.T) {
		d := base
		assert.False(t, d.ActiveNow(d.StartsAt.Add(-time.Second)))
	})

	t.Run("after window", func(t *testing.T) {
		d := base
		assert.False(t, d.ActiveNow(d.EndsAt.Add(time.Second)))
	})

	t.Run("inactive", func(t *testing.T) {
		d := base
		d.IsActive = false
		assert.False(t, d.ActiveNow(now))
	})

	t.Run("soft deleted", func(t *testing.T) {
		d := base
		deleted := now.Add(-time.Minute)
		d.DeletedAt = &deleted
		assert.False(t, d.ActiveNow(now))
	})
}

func TestDealCapacity(t *testing.T) {
	t.Run("unlimited", func(t *testing.T) {
		d := Deal{MaxUses: nil, UsedCount: 1000}
		assert.True(t, d.HasCapacity())
		assert.Nil(t, d.Remaining())
	})

	t.Run("limited with room", func(t *testing.T) {
		d := Deal{MaxUses: int32Ptr(10), UsedCount: 9}
		assert.True(t, d.HasCapacity())
		assert.Equal(t, int32(1), *d.Remaining())
	})

	t.Run("exhausted", func(t *testing.T) {
		d := Deal{MaxUses: int32Ptr(10), UsedCount: 10}
		assert.False(t, d.HasCapacity())
		assert.Equal(t, int32(0), *d.Remaining())
	})
}

func TestVoucherCapacity(t *testing.T) {
	v := Voucher{TotalQuantity: 50, SoldQuantity: 49}
	assert.True(t, v.HasCapacity())
	assert.Equal(t, int32(1), v.Remaining())

	v.SoldQuantity = 50
	assert.False(t, v.HasCapacity())
	assert.Equal(t, int32(0), v.Remaining())
}

func TestRestaurantVisible(t *testing.T) {
	r := Restaurant{IsActive: true}
	assert.True(t, r.Visible())

	deleted := time.Now()
	r.DeletedAt = &deleted
	assert.False(t, r.Visible())

	r = Restaurant{IsActive: false}
	assert.False(t, r.Visible())
}

func TestAllows(t *testing.T) {
	tests := []struct {
		role Role
		cap  Capability
		want bool
	}{
		{RoleAdmin, CapabilityManageCatalog, true},
		{RoleAdmin, CapabilityRedeem, true},
		{RoleAdmin, CapabilityWallet, true},
		{RoleMerchant, CapabilityManageCatalog, true},
		{RoleMerchant, CapabilityWallet, true},
		{RoleMerchant, CapabilityRedeem, false},
		{RoleCustomer, CapabilityRedeem, true},
		{RoleCustomer, CapabilityWallet, true},
		{RoleCustomer, CapabilityManageCatalog, false},
		{Role("unknown"), CapabilityWallet, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Allows(tt.role, tt.cap), "role=%s cap=%s", tt.role, tt.cap)
	}
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleMerchant.Valid())
	assert.True(t, RoleCustomer.Valid())
	assert.False(t, Role("superuser").Valid())
}

func TestDealTypeValid(t *testing.T) {
	assert.True(t, DealTypeTwoForOne.Valid())
	assert.True(t, DealTypeOther.Valid())
	assert.False(t, DealType("bogo").Valid())
}
