package pool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/velas/evm-bridge/internal/upstream"
)

const (
	sendRetries   = 5
	statusRetries = 15
	pollInterval  = 400 * time.Millisecond
)

// SendAndConfirm submits a pooled transaction, retrying up to
// sendRetries times with up to statusRetries status polls per
// iteration and a fresh blockhash resign between iterations (§7
// propagation policy).
func SendAndConfirm(ctx context.Context, client *upstream.Client, wrapper Wrapper, entry *PooledTransaction) (string, error) {
	var lastErr error
	for attempt := 0; attempt < sendRetries; attempt++ {
		blockhash, err := client.GetLatestBlockhash(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		wrapped, err := wrapper.Wrap(entry.Tx, entry.MetaKeys, blockhash)
		if err != nil {
			return "", fmt.Errorf("wrap transaction: %w", err)
		}
		sig, err := client.SendRawTransaction(ctx, wrapped)
		if err != nil {
			lastErr = err
			continue
		}
		confirmed, err := pollSignature(ctx, client, sig)
		if err != nil {
			lastErr = err
			continue
		}
		if confirmed {
			return sig, nil
		}
		lastErr = fmt.Errorf("signature %s not confirmed after %d polls", sig, statusRetries)
	}
	return "", lastErr
}

func pollSignature(ctx context.Context, client *upstream.Client, sig string) (bool, error) {
	for i := 0; i < statusRetries; i++ {
		statuses, err := client.GetSignatureStatuses(ctx, []string{sig})
		if err != nil {
			return false, err
		}
		if signatureConfirmed(statuses) {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return false, nil
}

// signatureConfirmed inspects the loosely-typed getSignatureStatuses
// response for a non-null confirmationStatus/confirmations entry with
// no error, mirroring the upstream's own success shape.
func signatureConfirmed(raw json.RawMessage) bool {
	var resp struct {
		Value []*struct {
			Err            interface{} `json:"err"`
			ConfirmationStatus string  `json:"confirmationStatus"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false
	}
	if len(resp.Value) == 0 || resp.Value[0] == nil {
		return false
	}
	status := resp.Value[0]
	if status.Err != nil {
		return false
	}
	return status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized"
}
