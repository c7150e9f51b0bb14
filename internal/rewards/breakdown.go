package rewards

import "github.com/shopspring/decimal"

// rewardScale is the fractional precision of every ledger amount, matching
// the numeric(20,8) ledger columns.
const rewardScale = 8

var (
	hundred         = decimal.NewFromInt(100)
	bonusFeePercent = decimal.NewFromInt(25)
)

// BreakdownInput carries the policy and fee parameters that shape one
// distribution.
type BreakdownInput struct {
	BaseReward               decimal.Decimal
	FeePercent               decimal.Decimal
	ProviderSplitPercent     decimal.Decimal
	OrganizationSplitPercent decimal.Decimal
	PatientSplitPercent      decimal.Decimal

	// BonusRecipientResolved reports whether the event carried a routable
	// bonus recipient. When false the whole network fee goes to the treasury.
	BonusRecipientResolved bool
}

// Breakdown is the amount owed to each stakeholder for one attestation.
// NetworkFee always equals TreasuryAmount + OrganizationBonus; when the
// split percentages sum to exactly 100, the three shares always sum to
// Distributable.
type Breakdown struct {
	NetworkFee        decimal.Decimal
	TreasuryAmount    decimal.Decimal
	OrganizationBonus decimal.Decimal
	Distributable     decimal.Decimal
	ProviderShare     decimal.Decimal
	OrganizationShare decimal.Decimal
	PatientShare      decimal.Decimal
}

// ComputeBreakdown derives the stakeholder amounts for one base reward. The
// network fee comes off the top; a quarter of it is carved out as the
// organization bonus when a recipient resolved. The remainder is split per
// the policy percentages, with the provider share computed by subtraction
// when the splits sum to 100 so rounding never mints or burns value.
func ComputeBreakdown(input BreakdownInput) Breakdown {
	fee := input.BaseReward.Mul(input.FeePercent).Div(hundred).RoundBank(rewardScale)

	orgBonus := decimal.Zero
	if input.BonusRecipientResolved {
		orgBonus = fee.Mul(bonusFeePercent).Div(hundred).RoundBank(rewardScale)
	}
	treasury := fee.Sub(orgBonus)

	distributable := input.BaseReward.Sub(fee)
	orgShare := distributable.Mul(input.OrganizationSplitPercent).Div(hundred).RoundBank(rewardScale)
	patientShare := distributable.Mul(input.PatientSplitPercent).Div(hundred).RoundBank(rewardScale)

	var providerShare decimal.Decimal
	splitTotal := input.ProviderSplitPercent.Add(input.OrganizationSplitPercent).Add(input.PatientSplitPercent)
	if splitTotal.Equal(hundred) {
		providerShare = distributable.Sub(orgShare).Sub(patientShare)
	} else {
		providerShare = distributable.Mul(input.ProviderSplitPercent).Div(hundred).RoundBank(rewardScale)
	}

	return Breakdown{
		NetworkFee:        fee,
		TreasuryAmount:    treasury,
		OrganizationBonus: orgBonus,
		Distributable:     distributable,
		ProviderShare:     providerShare,
		OrganizationShare: orgShare,
		PatientShare:      patientShare,
	}
}
