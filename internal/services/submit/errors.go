package submit

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/synthex/internal/clients"
	"github.com/vadiminshakov/synthex/internal/services/wallet"
)

// IsUserCancelled classifies a submission failure as a signing rejection
// by the wallet owner. Each wallet kind phrases the rejection differently.
func IsUserCancelled(err error, kind wallet.Kind) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, clients.ErrUserCancelled) {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch kind {
	case wallet.KindMetamask:
		// EIP-1193 code 4001
		if strings.Contains(msg, "user denied") {
			return true
		}
	case wallet.KindLedger:
		// status word for a rejected signature on the device
		if strings.Contains(msg, "6985") {
			return true
		}
	}

	return strings.Contains(msg, "cancelled") ||
		strings.Contains(msg, "canceled") ||
		strings.Contains(msg, "rejected")
}
