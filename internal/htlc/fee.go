package htlc

// Witness weight per input, by spending branch. A redeem witness carries
// the signature, the 32-byte preimage, the branch selector push and the
// script; a refund witness omits the preimage and pushes an empty selector.
const (
	redeemWitnessOverhead = 1 + 73 + 32 + 1
	refundWitnessOverhead = 1 + 73 + 1
)

// estimateFee computes the fee in satoshis for a transaction with the
// given shape at feeRate sat/vB. Virtual size is total weight divided by
// four, rounded up; base size uses fixed per-input and per-output costs
// plus framing.
func estimateFee(inputCount, outputCount, witnessSizePerInput int, feeRate int64) int64 {
	baseSize := 6 + inputCount*40 + 1 + outputCount*43 + 4
	totalWitnessSize := inputCount * witnessSizePerInput
	totalWeight := baseSize*4 + totalWitnessSize
	vsize := (totalWeight + 3) / 4
	return int64(vsize) * feeRate
}

// redeemWitnessSize is the estimated witness size of one redeem input
func redeemWitnessSize(scriptLen int) int {
	return redeemWitnessOverhead + scriptLen
}

// refundWitnessSize is the estimated witness size of one refund input
func refundWitnessSize(scriptLen int) int {
	return refundWitnessOverhead + scriptLen
}
