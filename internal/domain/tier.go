package domain

type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
	TierVIP      Tier = "vip"
)

func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium, TierVIP:
		return true
	}
	return false
}

// TierSettings is the per-tier contact matrix loaded from configuration
// storage. It decides who a tier may request meetings with and whether
// contacting upmarket tiers costs extra credits.
type TierSettings struct {
	Tier               Tier `json:"tier"`
	CanContactBasic    bool `json:"can_contact_basic"`
	CanContactStandard bool `json:"can_contact_standard"`
	CanContactPremium  bool `json:"can_contact_premium"`
	CanContactVIP      bool `json:"can_contact_vip"`
	SurchargePremium   bool `json:"surcharge_premium"`
	SurchargeVIP       bool `json:"surcharge_vip"`
}

type ContactDecision struct {
	Allowed   bool   `json:"allowed"`
	Surcharge bool   `json:"surcharge"`
	Reason    string `json:"reason,omitempty"`
}
