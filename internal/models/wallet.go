package models

import (
	"encoding/hex"
	"strings"
)

type MintResult struct {
	TransactionHash string `json:"transactionHash"`
	TokenID         string `json:"tokenId,omitempty"`
}

// IsWalletAddress accepts 0x-prefixed, 20 byte hex addresses in any case.
func IsWalletAddress(addr string) bool {
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return false
	}
	body := addr[2:]
	if len(body) != 40 {
		return false
	}
	_, err := hex.DecodeString(body)
	return err == nil
}
