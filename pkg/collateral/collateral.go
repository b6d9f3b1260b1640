// Package collateral abstracts the external fungible asset ledger that holds
// the pool's economic collateral. The core ledger only moves balances through
// this interface; a failed transfer is fatal to the enclosing operation.
package collateral

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

var (
	ErrInsufficientBalance = errors.New("insufficient collateral balance")
	ErrInvalidAmount       = errors.New("invalid transfer amount")
)

type ICollateralClient interface {
	// TransferFrom moves amount from `from` to `to` on the external balance
	// ledger. Callers hold the authority to move the payer's funds.
	TransferFrom(ctx context.Context, from string, to string, amount *big.Int) error
	// Transfer moves amount from the pool's own account to `to`.
	Transfer(ctx context.Context, to string, amount *big.Int) error
	// BalanceOf reports the current balance of an account.
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
}

// InMemoryCollateral is a self-contained balance ledger implementing
// ICollateralClient. It stands in for the external asset contract in tests and
// local runs.
type InMemoryCollateral struct {
	mu          sync.Mutex
	poolAccount string
	balances    map[string]*big.Int
}

func NewInMemoryCollateral(poolAccount string) *InMemoryCollateral {
	return &InMemoryCollateral{
		poolAccount: strings.ToLower(poolAccount),
		balances:    make(map[string]*big.Int),
	}
}

// Mint credits an account out of thin air. Test setup only.
func (c *InMemoryCollateral) Mint(account string, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	account = strings.ToLower(account)
	balance, ok := c.balances[account]
	if !ok {
		balance = new(big.Int)
		c.balances[account] = balance
	}
	balance.Add(balance, amount)
}

func (c *InMemoryCollateral) TransferFrom(ctx context.Context, from string, to string, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(strings.ToLower(from), strings.ToLower(to), amount)
}

func (c *InMemoryCollateral) Transfer(ctx context.Context, to string, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(c.poolAccount, strings.ToLower(to), amount)
}

func (c *InMemoryCollateral) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	balance, ok := c.balances[strings.ToLower(account)]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(balance), nil
}

func (c *InMemoryCollateral) move(from string, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	fromBalance, ok := c.balances[from]
	if !ok || fromBalance.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "account %s", from)
	}
	toBalance, ok := c.balances[to]
	if !ok {
		toBalance = new(big.Int)
		c.balances[to] = toBalance
	}
	fromBalance.Sub(fromBalance, amount)
	toBalance.Add(toBalance, amount)
	return nil
}
