package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/bitcoinswap/htlc-engine/pkg/logging"
)

// RestExplorer talks to a mempool.space-style block explorer over plain HTTP
// GET/POST. It is the backend variant used when no local node is configured.
type RestExplorer struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logging.Logger
}

// explorerRequestsPerSecond throttles outbound requests to stay well under the
// rate limits public explorer instances enforce with HTTP 429.
const explorerRequestsPerSecond = 4

// NewRestExplorer builds a REST explorer backend pointed at baseURL (e.g.
// "https://mempool.space/testnet/api").
func NewRestExplorer(baseURL string) *RestExplorer {
	return &RestExplorer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		limiter:    rate.NewLimiter(rate.Limit(explorerRequestsPerSecond), explorerRequestsPerSecond),
		log:        logging.GetDefault().Component("backend.explorer"),
	}
}

func (e *RestExplorer) Type() Type { return TypeRestExplorer }

func (e *RestExplorer) TipHeight(ctx context.Context) (int64, error) {
	body, err := e.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}
	var height int64
	if err := json.Unmarshal(body, &height); err != nil {
		return 0, fmt.Errorf("decode tip height: %w", err)
	}
	return height, nil
}

func (e *RestExplorer) GetTx(ctx context.Context, txid string) (*TransactionInfo, error) {
	body, err := e.get(ctx, "/tx/"+txid)
	if err != nil {
		return nil, err
	}

	var raw struct {
		TxID   string `json:"txid"`
		Fee    int64  `json:"fee"`
		Status struct {
			Confirmed   bool  `json:"confirmed"`
			BlockHeight int64 `json:"block_height"`
			BlockTime   int64 `json:"block_time"`
		} `json:"status"`
		Vin []struct {
			TxID     string `json:"txid"`
			Vout     uint32 `json:"vout"`
			Sequence uint32 `json:"sequence"`
		} `json:"vin"`
		Vout []struct {
			ScriptPubKey     string `json:"scriptpubkey"`
			ScriptPubKeyAddr string `json:"scriptpubkey_address"`
			Value            int64  `json:"value"`
		} `json:"vout"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}

	info := &TransactionInfo{
		TxID:        raw.TxID,
		Confirmed:   raw.Status.Confirmed,
		BlockHeight: raw.Status.BlockHeight,
		BlockTime:   raw.Status.BlockTime,
		FeeSats:     raw.Fee,
	}
	if info.Confirmed {
		if tip, err := e.TipHeight(ctx); err == nil && tip >= info.BlockHeight {
			info.Confirmations = tip - info.BlockHeight + 1
		} else {
			info.Confirmations = 1
		}
	}
	for _, in := range raw.Vin {
		info.Inputs = append(info.Inputs, TxInput{TxID: in.TxID, Vout: in.Vout, Sequence: in.Sequence})
	}
	for _, out := range raw.Vout {
		info.Outputs = append(info.Outputs, TxOutput{
			ValueSats:    out.Value,
			ScriptPubKey: out.ScriptPubKey,
			Address:      out.ScriptPubKeyAddr,
		})
	}
	return info, nil
}

func (e *RestExplorer) ListUTXOs(ctx context.Context, address string) ([]UTXO, error) {
	body, err := e.get(ctx, "/address/"+address+"/utxo")
	if err != nil {
		return nil, err
	}

	var raw []struct {
		TxID   string `json:"txid"`
		Vout   uint32 `json:"vout"`
		Value  int64  `json:"value"`
		Status struct {
			Confirmed   bool  `json:"confirmed"`
			BlockHeight int64 `json:"block_height"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode utxos: %w", err)
	}

	utxos := make([]UTXO, len(raw))
	for i, u := range raw {
		utxos[i] = UTXO{
			TxID:        u.TxID,
			Vout:        u.Vout,
			ValueSats:   u.Value,
			Confirmed:   u.Status.Confirmed,
			BlockHeight: u.Status.BlockHeight,
		}
	}
	return utxos, nil
}

func (e *RestExplorer) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", ErrBackendTimeout
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/tx", strings.NewReader(rawTxHex))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain")

	e.log.Debug("broadcast")
	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrBackendTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s", ErrBroadcastFailed, strings.TrimSpace(string(body)))
	}
	return strings.TrimSpace(string(body)), nil
}

// staticFeeFallback is a documented placeholder: public explorer fee APIs vary
// in shape and availability, so rather than wire one instance-specific schema
// the adapter returns this fixed table. Production deployments must replace
// this with a live source (see core spec §9 Open Question 3).
var staticFeeFallback = &FeeRate{
	FastestFee:  5,
	HalfHourFee: 3,
	HourFee:     2,
	EconomyFee:  1,
}

func (e *RestExplorer) FeeEstimates(ctx context.Context) (*FeeRate, error) {
	return staticFeeFallback, nil
}

func (e *RestExplorer) get(ctx context.Context, path string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, ErrBackendTimeout
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	e.log.Debug("get", "path", path)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrBackendTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrAddressNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

var _ Backend = (*RestExplorer)(nil)
