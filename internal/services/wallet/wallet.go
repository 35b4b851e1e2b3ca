package wallet

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Kind names the wallet software holding the signing key, used when
// classifying submission errors.
type Kind string

const (
	KindLocal    Kind = "local"
	KindMetamask Kind = "metamask"
	KindLedger   Kind = "ledger"
)

// Context tracks the currently connected wallet. All reads are safe for
// concurrent use; connection changes come from the surrounding application.
type Context struct {
	mu        sync.RWMutex
	addr      common.Address
	kind      Kind
	connected bool
}

func NewContext() *Context {
	return &Context{}
}

// Connect sets the active wallet address and kind.
func (c *Context) Connect(addr common.Address, kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addr = addr
	c.kind = kind
	c.connected = true
}

// Disconnect clears the active wallet.
func (c *Context) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addr = common.Address{}
	c.kind = ""
	c.connected = false
}

// CurrentAddress returns the connected wallet address, reporting whether a
// wallet is connected at all.
func (c *Context) CurrentAddress() (common.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.addr, c.connected
}

// CurrentKind returns the connected wallet kind.
func (c *Context) CurrentKind() Kind {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kind
}
