package domain

import (
	"fmt"
	"strings"
)

// DefaultFiatSubstitute replaces the fiat quote currencies Poloniex does not
// list.
const DefaultFiatSubstitute = "USDT"

var unsupportedFiats = map[string]struct{}{
	"EUR": {},
	"USD": {},
}

var cryptoAliases = map[string]string{
	"XBT": "BTC",
}

// Pair is a Poloniex market, rendered as CRYPTO_FIAT.
type Pair struct {
	Crypto string
	Fiat   string
}

// NewPair normalizes the requested currencies. XBT becomes BTC and the fiat
// currencies Poloniex does not support are replaced by substitute, or by
// DefaultFiatSubstitute when substitute is empty.
func NewPair(crypto, fiat, substitute string) (Pair, error) {
	crypto = strings.ToUpper(strings.TrimSpace(crypto))
	fiat = strings.ToUpper(strings.TrimSpace(fiat))
	substitute = strings.ToUpper(strings.TrimSpace(substitute))

	if crypto == "" || fiat == "" {
		return Pair{}, fmt.Errorf("%w: crypto %q, fiat %q", ErrInvalidPair, crypto, fiat)
	}
	if substitute == "" {
		substitute = DefaultFiatSubstitute
	}

	if alias, ok := cryptoAliases[crypto]; ok {
		crypto = alias
	}
	if _, ok := unsupportedFiats[fiat]; ok {
		fiat = substitute
	}

	return Pair{Crypto: crypto, Fiat: fiat}, nil
}

// ParsePair reads a CRYPTO_FIAT symbol as returned by String.
func ParsePair(symbol string) (Pair, error) {
	parts := strings.Split(symbol, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("%w: %q", ErrInvalidPair, symbol)
	}
	return Pair{Crypto: strings.ToUpper(parts[0]), Fiat: strings.ToUpper(parts[1])}, nil
}

func (p Pair) String() string {
	return p.Crypto + "_" + p.Fiat
}

// Ticker is the pair without separator, used in file names.
func (p Pair) Ticker() string {
	return p.Crypto + p.Fiat
}
