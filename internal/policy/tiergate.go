package policy

import (
	"fmt"

	"meeting-service/internal/domain"
)

// CanContact is the tier/permission gate: pure over the requester's
// loaded settings and the target's tier. It runs before any ledger
// mutation.
func CanContact(requester *domain.TierSettings, target domain.Tier) domain.ContactDecision {
	allowed := false
	switch target {
	case domain.TierBasic:
		allowed = requester.CanContactBasic
	case domain.TierStandard:
		allowed = requester.CanContactStandard
	case domain.TierPremium:
		allowed = requester.CanContactPremium
	case domain.TierVIP:
		allowed = requester.CanContactVIP
	}

	// VIP accounts may contact anyone regardless of the matrix.
	if requester.Tier == domain.TierVIP {
		allowed = true
	}

	if !allowed {
		return domain.ContactDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("tier %s may not request meetings with tier %s", requester.Tier, target),
		}
	}

	surcharge := false
	switch target {
	case domain.TierPremium:
		surcharge = requester.SurchargePremium
	case domain.TierVIP:
		surcharge = requester.SurchargeVIP
	}

	return domain.ContactDecision{Allowed: true, Surcharge: surcharge}
}
