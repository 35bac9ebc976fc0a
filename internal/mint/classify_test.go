package mint

import (
	"testing"

	"github.com/matrixise/sui-friday/internal/notify"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want FailureCode
	}{
		{"already minted by name", "MoveAbort(MoveLocation { module: accra, function_name: Some(\"mint\") }, EAlreadyMinted)", CodeAlreadyMinted},
		{"already minted by code", "abort code 0", CodeAlreadyMinted},
		{"sold out by name", "EMaxSupplyReached", CodeSoldOut},
		{"sold out by code", "MoveAbort(accra::mint, 1)", CodeSoldOut},
		{"incorrect payment by name", "EIncorrectPayment", CodeInsufficientFunds},
		{"incorrect payment by code", "abort 2", CodeInsufficientFunds},
		{"zero wins over one", "MoveAbort(..., 1) in command 0", CodeAlreadyMinted},
		{"one wins over two", "codes 2 and 1", CodeSoldOut},
		{"unrecognized", "InsufficientGas", CodeUnknown},
		{"empty", "", CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.raw))
		})
	}
}

func TestFailureNotification(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode FailureCode
		want     notify.Notification
	}{
		{
			name:     "already minted",
			raw:      "EAlreadyMinted",
			wantCode: CodeAlreadyMinted,
			want:     notify.Error("One NFT per wallet", "You have already minted this NFT! 🚫"),
		},
		{
			name:     "sold out",
			raw:      "EMaxSupplyReached",
			wantCode: CodeSoldOut,
			want:     notify.Error("Sold out 😱", "All Bootcamp NFTs have been minted!"),
		},
		{
			name:     "insufficient funds",
			raw:      "EIncorrectPayment",
			wantCode: CodeInsufficientFunds,
			want:     notify.Error("Insufficient SUI amount", "You don't have enough SUI in your balance 😱"),
		},
		{
			name:     "unknown keeps the raw string",
			raw:      "InsufficientGas",
			wantCode: CodeUnknown,
			want:     notify.Error("Transaction failed", "InsufficientGas"),
		},
		{
			name:     "empty error",
			raw:      "",
			wantCode: CodeUnknown,
			want:     notify.Error("Transaction failed", "An unexpected error occurred. Please try again"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, n := FailureNotification(tt.raw)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.want, n)
		})
	}
}
