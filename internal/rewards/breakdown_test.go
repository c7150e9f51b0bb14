package rewards

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", value, err)
	}
	return d
}

func TestComputeBreakdownSplitsBaseReward(t *testing.T) {
	got := ComputeBreakdown(BreakdownInput{
		BaseReward:               dec(t, "10"),
		FeePercent:               dec(t, "2.5"),
		ProviderSplitPercent:     dec(t, "70"),
		OrganizationSplitPercent: dec(t, "20"),
		PatientSplitPercent:      dec(t, "10"),
		BonusRecipientResolved:   true,
	})

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"network fee", got.NetworkFee, "0.25"},
		{"organization bonus", got.OrganizationBonus, "0.0625"},
		{"treasury amount", got.TreasuryAmount, "0.1875"},
		{"distributable", got.Distributable, "9.75"},
		{"organization share", got.OrganizationShare, "1.95"},
		{"patient share", got.PatientShare, "0.975"},
		{"provider share", got.ProviderShare, "6.825"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(t, c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestComputeBreakdownConservesValue(t *testing.T) {
	input := BreakdownInput{
		BaseReward:               dec(t, "1.00000033"),
		FeePercent:               dec(t, "3.33"),
		ProviderSplitPercent:     dec(t, "66.67"),
		OrganizationSplitPercent: dec(t, "22.22"),
		PatientSplitPercent:      dec(t, "11.11"),
		BonusRecipientResolved:   true,
	}
	got := ComputeBreakdown(input)

	if !got.TreasuryAmount.Add(got.OrganizationBonus).Equal(got.NetworkFee) {
		t.Fatalf("fee carve-out leaks value: %s + %s != %s",
			got.TreasuryAmount, got.OrganizationBonus, got.NetworkFee)
	}
	shares := got.ProviderShare.Add(got.OrganizationShare).Add(got.PatientShare)
	if !shares.Equal(got.Distributable) {
		t.Fatalf("shares leak value: %s != %s", shares, got.Distributable)
	}
	total := shares.Add(got.NetworkFee)
	if !total.Equal(input.BaseReward) {
		t.Fatalf("total minted %s != base reward %s", total, input.BaseReward)
	}
}

func TestComputeBreakdownNoBonusWithoutRecipient(t *testing.T) {
	got := ComputeBreakdown(BreakdownInput{
		BaseReward:           dec(t, "10"),
		FeePercent:           dec(t, "2"),
		ProviderSplitPercent: dec(t, "100"),
	})

	if !got.OrganizationBonus.IsZero() {
		t.Fatalf("bonus minted without a recipient: %s", got.OrganizationBonus)
	}
	if !got.TreasuryAmount.Equal(got.NetworkFee) {
		t.Fatalf("full fee should route to treasury: %s != %s", got.TreasuryAmount, got.NetworkFee)
	}
}

func TestComputeBreakdownPartialSplits(t *testing.T) {
	// Splits that do not sum to 100 are taken at face value; the remainder
	// is simply not minted.
	got := ComputeBreakdown(BreakdownInput{
		BaseReward:           dec(t, "10"),
		FeePercent:           dec(t, "0"),
		ProviderSplitPercent: dec(t, "50"),
	})
	if !got.ProviderShare.Equal(dec(t, "5")) {
		t.Fatalf("provider share = %s, want 5", got.ProviderShare)
	}
	if !got.OrganizationShare.IsZero() || !got.PatientShare.IsZero() {
		t.Fatal("no other shares expected")
	}
}
