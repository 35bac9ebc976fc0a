package mint

import (
	"strings"

	"github.com/matrixise/sui-friday/internal/notify"
)

// FailureCode is the reason the ledger rejected a mint
type FailureCode string

const (
	CodeNone              FailureCode = ""
	CodeAlreadyMinted     FailureCode = "already_minted"
	CodeSoldOut           FailureCode = "sold_out"
	CodeInsufficientFunds FailureCode = "insufficient_funds"
	CodeUnknown           FailureCode = "unknown"
)

// Toast texts shown to the user
const (
	titleSuccess       = "You have successfully minted this NFT!"
	descriptionSuccess = "You are now officially a Sui Ghana 2025 Bootcamp attendee"

	titleAlreadyMinted       = "One NFT per wallet"
	descriptionAlreadyMinted = "You have already minted this NFT! 🚫"

	titleSoldOut       = "Sold out 😱"
	descriptionSoldOut = "All Bootcamp NFTs have been minted!"

	titleInsufficientFunds       = "Insufficient SUI amount"
	descriptionInsufficientFunds = "You don't have enough SUI in your balance 😱"

	titleTransactionFailed = "Transaction failed"
	descriptionUnexpected  = "An unexpected error occurred. Please try again"
	descriptionMintError   = "An error occurred while minting"

	titleNoWallet = "Please connect your wallet"

	titleConfirmation       = "Error confirming transaction"
	descriptionConfirmation = "Please check your wallet or try again"

	titleBuild       = "Something went wrong"
	descriptionBuild = "Please try again or check your wallet connection"

	titleInProgress       = "Mint already in progress"
	descriptionInProgress = "Please wait for the current transaction to finish"
)

// Abort codes of the accra module, matched in this order
var failureRules = []struct {
	code    FailureCode
	needles []string
}{
	{CodeAlreadyMinted, []string{"0", "EAlreadyMinted"}},
	{CodeSoldOut, []string{"1", "EMaxSupplyReached"}},
	{CodeInsufficientFunds, []string{"2", "EIncorrectPayment"}},
}

// Classify maps a failed effects error string to a FailureCode by substring.
// Rules are checked in order and the first match wins.
func Classify(rawErr string) FailureCode {
	for _, rule := range failureRules {
		for _, needle := range rule.needles {
			if strings.Contains(rawErr, needle) {
				return rule.code
			}
		}
	}
	return CodeUnknown
}

// FailureNotification is the toast for a ledger rejection. An empty raw error
// gets the generic message.
func FailureNotification(rawErr string) (FailureCode, notify.Notification) {
	if rawErr == "" {
		return CodeUnknown, notify.Error(titleTransactionFailed, descriptionUnexpected)
	}

	code := Classify(rawErr)
	switch code {
	case CodeAlreadyMinted:
		return code, notify.Error(titleAlreadyMinted, descriptionAlreadyMinted)
	case CodeSoldOut:
		return code, notify.Error(titleSoldOut, descriptionSoldOut)
	case CodeInsufficientFunds:
		return code, notify.Error(titleInsufficientFunds, descriptionInsufficientFunds)
	default:
		return code, notify.Error(titleTransactionFailed, rawErr)
	}
}
