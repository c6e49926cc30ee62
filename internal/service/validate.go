package service

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/gardenfi/swapd/internal/types"
)

// ValidationError reports rejected client input; handlers map it to 400
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ValidateSignedOrder checks an order submission before it reaches the
// store: signature present, salt non-empty, addresses well-formed, amounts
// positive, secret hashes present.
func ValidateSignedOrder(signed *types.SignedOrderInput) error {
	if signed.OrderHash == "" {
		return invalid("Order hash cannot be empty")
	}
	if len(signed.Signature) == 0 || string(signed.Signature) == "null" {
		return invalid("Signature cannot be empty")
	}
	if signed.Order.Salt == "" {
		return invalid("Salt cannot be empty")
	}

	if err := validateAddress(signed.Order.MakerAsset, "Maker asset"); err != nil {
		return err
	}
	if err := validateAddress(signed.Order.TakerAsset, "Taker asset"); err != nil {
		return err
	}
	if err := validateAddress(signed.Order.Maker, "Maker"); err != nil {
		return err
	}
	if err := validateAddress(signed.Order.Receiver, "Receiver"); err != nil {
		return err
	}

	if err := validateAmount(signed.Order.MakingAmount, "making"); err != nil {
		return err
	}
	if err := validateAmount(signed.Order.TakingAmount, "taking"); err != nil {
		return err
	}

	switch signed.OrderType {
	case types.SingleFill, types.MultipleFills, "":
	default:
		return invalid("Unknown order type: %s", signed.OrderType)
	}

	for i := range signed.Secrets {
		if signed.Secrets[i].SecretHash == "" {
			return invalid("Secret hash missing at index %d", signed.Secrets[i].Index)
		}
		if err := types.VerifySecretEntry(&signed.Secrets[i]); err != nil {
			return invalid("%s", err.Error())
		}
	}

	return nil
}

// ValidateSecretInput checks a secret submission: non-empty hex without a
// 0x prefix, bound to a named order
func ValidateSecretInput(input *types.SecretInput) error {
	if input.Secret == "" {
		return invalid("Secret cannot be empty")
	}
	if input.OrderHash == "" {
		return invalid("Order hash cannot be empty")
	}
	if strings.HasPrefix(input.Secret, "0x") {
		return invalid("Secret must be a valid hex string without 0x prefix")
	}
	if _, err := hex.DecodeString(input.Secret); err != nil {
		return invalid("Secret must be a valid hex string without 0x prefix")
	}
	return nil
}

// ValidateUpdateFieldRequest checks an order-field update request
func ValidateUpdateFieldRequest(req *types.UpdateOrderFieldRequest) error {
	if req.FieldName == "" {
		return invalid("Field name cannot be empty")
	}
	if req.OrderHash == "" {
		return invalid("Order hash cannot be empty")
	}
	return nil
}

// validateAddress accepts 42-character 0x-prefixed hex addresses
func validateAddress(addr, label string) error {
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		return invalid("%s must be a valid Ethereum address", label)
	}
	if _, err := hex.DecodeString(addr[2:]); err != nil {
		return invalid("%s must be a valid Ethereum address", label)
	}
	return nil
}

func validateAmount(amount *big.Int, label string) error {
	if amount == nil || amount.Sign() <= 0 {
		return invalid("Invalid %s amount", label)
	}
	return nil
}
