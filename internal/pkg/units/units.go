// Package units converts integer amounts in a currency's smallest unit to
// decimal strings.
package units

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals between wei and ether.
const EtherDecimals = 18

// Format renders amount / 10^decimals as a plain decimal string with no
// exponent, no trailing zeros and no trailing dot. 1e18 with 18 decimals is
// "1"; 1500 with 3 decimals is "1.5". A nil amount formats as "0".
func Format(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}

	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
