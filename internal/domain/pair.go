package domain

import "fmt"

// Pair is a base/quote currency pair: quote is sold, base is bought.
type Pair struct {
	Base  string
	Quote string
}

// Swapped returns the pair with base and quote exchanged.
func (p Pair) Swapped() Pair {
	return Pair{Base: p.Quote, Quote: p.Base}
}

func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.Base, p.Quote)
}
