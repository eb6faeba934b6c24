package policy

import (
	"testing"

	"meeting-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCanContactMatrix(t *testing.T) {
	standard := &domain.TierSettings{
		Tier:               domain.TierStandard,
		CanContactBasic:    true,
		CanContactStandard: true,
		CanContactPremium:  true,
		CanContactVIP:      false,
		SurchargePremium:   true,
	}

	t.Run("allowed without surcharge", func(t *testing.T) {
		d := CanContact(standard, domain.TierStandard)
		assert.True(t, d.Allowed)
		assert.False(t, d.Surcharge)
	})

	t.Run("allowed with surcharge for premium target", func(t *testing.T) {
		d := CanContact(standard, domain.TierPremium)
		assert.True(t, d.Allowed)
		assert.True(t, d.Surcharge)
	})

	t.Run("denied with reason", func(t *testing.T) {
		d := CanContact(standard, domain.TierVIP)
		assert.False(t, d.Allowed)
		assert.Contains(t, d.Reason, "standard")
		assert.Contains(t, d.Reason, "vip")
	})
}

func TestCanContactVIPOverridesMatrix(t *testing.T) {
	// A VIP requester's matrix may say no, but VIP contacts anyone.
	vip := &domain.TierSettings{
		Tier:         domain.TierVIP,
		SurchargeVIP: true,
	}

	for _, target := range []domain.Tier{domain.TierBasic, domain.TierStandard, domain.TierPremium, domain.TierVIP} {
		d := CanContact(vip, target)
		assert.True(t, d.Allowed, "vip should reach %s", target)
	}

	// Surcharge flags still apply to VIP requesters.
	assert.True(t, CanContact(vip, domain.TierVIP).Surcharge)
	assert.False(t, CanContact(vip, domain.TierBasic).Surcharge)
}
