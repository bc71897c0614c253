package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bitcoinswap/htlc-engine/pkg/logging"
)

// requestTimeout bounds every outbound HTTP call to the node; exceeding it
// surfaces as ErrBackendTimeout per the engine's concurrency model.
const requestTimeout = 30 * time.Second

// NodeRPC talks JSON-RPC 2.0 to a local Bitcoin Core node over HTTP basic auth.
type NodeRPC struct {
	rpcURL     string
	rpcUser    string
	rpcPass    string
	httpClient *http.Client
	requestID  atomic.Uint64
	log        *logging.Logger
}

// NewNodeRPC builds a Node RPC backend from a node URL and basic-auth credentials.
func NewNodeRPC(rpcURL, user, pass string) *NodeRPC {
	return &NodeRPC{
		rpcURL:     rpcURL,
		rpcUser:    user,
		rpcPass:    pass,
		httpClient: &http.Client{Timeout: requestTimeout},
		log:        logging.GetDefault().Component("backend.noderpc"),
	}
}

func (n *NodeRPC) Type() Type { return TypeNodeRPC }

func (n *NodeRPC) TipHeight(ctx context.Context) (int64, error) {
	result, err := n.call(ctx, "getblockcount", []interface{}{})
	if err != nil {
		return 0, err
	}
	var height int64
	if err := json.Unmarshal(result, &height); err != nil {
		return 0, fmt.Errorf("decode getblockcount: %w", err)
	}
	return height, nil
}

func (n *NodeRPC) GetTx(ctx context.Context, txid string) (*TransactionInfo, error) {
	result, err := n.call(ctx, "getrawtransaction", []interface{}{txid, true})
	if err != nil {
		return nil, ErrTxNotFound
	}

	var raw struct {
		TxID          string `json:"txid"`
		Confirmations int64  `json:"confirmations"`
		BlockTime     int64  `json:"blocktime"`
		Vin           []struct {
			TxID     string `json:"txid"`
			Vout     uint32 `json:"vout"`
			Sequence uint32 `json:"sequence"`
		} `json:"vin"`
		Vout []struct {
			Value        float64 `json:"value"`
			ScriptPubKey struct {
				Hex     string `json:"hex"`
				Address string `json:"address"`
			} `json:"scriptPubKey"`
		} `json:"vout"`
	}
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("decode getrawtransaction: %w", err)
	}

	info := &TransactionInfo{
		TxID:          raw.TxID,
		Confirmed:     raw.Confirmations > 0,
		BlockTime:     raw.BlockTime,
		Confirmations: raw.Confirmations,
	}
	for _, in := range raw.Vin {
		info.Inputs = append(info.Inputs, TxInput{TxID: in.TxID, Vout: in.Vout, Sequence: in.Sequence})
	}
	for _, out := range raw.Vout {
		info.Outputs = append(info.Outputs, TxOutput{
			ValueSats:    btcToSats(out.Value),
			ScriptPubKey: out.ScriptPubKey.Hex,
			Address:      out.ScriptPubKey.Address,
		})
	}
	return info, nil
}

func (n *NodeRPC) ListUTXOs(ctx context.Context, address string) ([]UTXO, error) {
	result, err := n.call(ctx, "listunspent", []interface{}{0, 9999999, []string{address}})
	if err != nil {
		return nil, fmt.Errorf("listunspent: %w", err)
	}

	var unspent []struct {
		TxID          string  `json:"txid"`
		Vout          uint32  `json:"vout"`
		Amount        float64 `json:"amount"`
		Confirmations int64   `json:"confirmations"`
	}
	if err := json.Unmarshal(result, &unspent); err != nil {
		return nil, fmt.Errorf("decode listunspent: %w", err)
	}

	// listunspent reports depth, not height; derive the height from the tip.
	var tip int64
	if h, err := n.TipHeight(ctx); err == nil {
		tip = h
	}

	utxos := make([]UTXO, len(unspent))
	for i, u := range unspent {
		utxos[i] = UTXO{
			TxID:      u.TxID,
			Vout:      u.Vout,
			ValueSats: btcToSats(u.Amount),
			Confirmed: u.Confirmations > 0,
		}
		if u.Confirmations > 0 && tip >= u.Confirmations {
			utxos[i].BlockHeight = tip - u.Confirmations + 1
		}
	}
	return utxos, nil
}

func (n *NodeRPC) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	result, err := n.call(ctx, "sendrawtransaction", []interface{}{rawTxHex})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBroadcastFailed, err)
	}
	var txid string
	if err := json.Unmarshal(result, &txid); err != nil {
		return "", fmt.Errorf("decode sendrawtransaction: %w", err)
	}
	return txid, nil
}

// FeeEstimates queries estimatesmartfee for 1/3/6/144-block targets and
// converts the node's BTC/kB feerate to sat/vB.
func (n *NodeRPC) FeeEstimates(ctx context.Context) (*FeeRate, error) {
	rate := &FeeRate{}
	targets := []struct {
		blocks int
		field  *uint32
	}{
		{1, &rate.FastestFee},
		{3, &rate.HalfHourFee},
		{6, &rate.HourFee},
		{144, &rate.EconomyFee},
	}

	for _, t := range targets {
		result, err := n.call(ctx, "estimatesmartfee", []interface{}{t.blocks})
		if err != nil {
			n.log.Warn("estimatesmartfee failed", "target", t.blocks, "error", err)
			continue
		}
		var resp struct {
			FeeRate float64 `json:"feerate"`
		}
		if err := json.Unmarshal(result, &resp); err != nil || resp.FeeRate <= 0 {
			continue
		}
		*t.field = uint32(resp.FeeRate * 1e8 / 1000)
	}
	return rate, nil
}

func (n *NodeRPC) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := n.requestID.Add(1)
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(n.rpcUser, n.rpcPass)

	n.log.Debug("rpc call", "method", method)
	resp, err := n.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, ErrBackendTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("parse rpc response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func btcToSats(btc float64) int64 {
	return int64(btc*1e8 + 0.5)
}

var _ Backend = (*NodeRPC)(nil)
