package usecase

// Pure pricing math. No rounding happens here; currency rounding to cents is
// applied only at the gateway boundary (stripe.ToCents).

type PixPricing struct {
	Discount    float64
	FinalAmount float64
}

// ComputePixPricing applies the configured PIX discount to a plan price.
func ComputePixPricing(amount, discountPercent float64) PixPricing {
	discount := amount * discountPercent / 100
	return PixPricing{
		Discount:    discount,
		FinalAmount: amount - discount,
	}
}

// ComputeInstallmentValue is advisory/display-only: for installments > 1 the
// gateway is the source of truth for the per-installment charged amount.
// For a single installment the value equals the amount exactly.
func ComputeInstallmentValue(amount float64, installments int) float64 {
	if installments <= 1 {
		return amount
	}
	return amount / float64(installments)
}
