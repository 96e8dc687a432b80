package service

import (
	"math"

	"creator-payout-service/internal/core/domain"
)

// Fee computes the platform fee for the given cumulative earnings.
// Fixed mode charges a flat amount; percent mode charges
// max(floor, round(totalReceived * rate)).
func Fee(model domain.FeeModel, totalReceived int64) int64 {
	switch model.Mode {
	case domain.FeeModePercent:
		fee := int64(math.Round(float64(totalReceived) * model.Rate))
		if fee < model.Floor {
			fee = model.Floor
		}
		return fee
	default:
		return model.Amount
	}
}

// AvailableBalance computes the portion of earnings currently eligible
// for withdrawal: total received minus the platform fee minus the sum of
// open (PENDING/PROCESSING) request amounts, clamped at zero.
//
// Outstanding requests change over time, so this must be recomputed from
// current source data at every decision point, never cached.
func AvailableBalance(totalReceived int64, model domain.FeeModel, openRequests []domain.WithdrawalRequest) int64 {
	var hold int64
	for i := range openRequests {
		if openRequests[i].IsOpen() {
			hold += openRequests[i].Amount
		}
	}
	return availableFromHold(totalReceived, model, hold)
}

// availableFromHold is the clamped balance formula with the open hold
// already summed (the repository computes the sum in SQL on hot paths).
func availableFromHold(totalReceived int64, model domain.FeeModel, openHold int64) int64 {
	available := totalReceived - Fee(model, totalReceived) - openHold
	if available < 0 {
		return 0
	}
	return available
}
