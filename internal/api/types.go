package api

import "github.com/bitcoinswap/htlc-engine/internal/orders"

// CreateOrderRequest is the body of POST /v1/orders.
type CreateOrderRequest struct {
	Direction                     string  `json:"direction"`
	PreimageHash                  string  `json:"preimage_hash"`
	BitcoinAmount                 *int64  `json:"bitcoin_amount,omitempty"`
	BitcoinAddress                *string `json:"bitcoin_address,omitempty"`
	BitcoinPublicKey              *string `json:"bitcoin_public_key,omitempty"`
	EthereumAddress               *string `json:"ethereum_address,omitempty"`
	ResolverPublicKey             string  `json:"resolver_public_key,omitempty"`
	BitcoinTimeoutBlocks          int64   `json:"bitcoin_timeout_blocks"`
	EthereumTimeoutBlocks         int64   `json:"ethereum_timeout_blocks"`
	BitcoinConfirmationsRequired  int64   `json:"bitcoin_confirmations_required"`
	EthereumConfirmationsRequired int64   `json:"ethereum_confirmations_required"`
}

// OrderResponse is the JSON rendering of a SwapOrder returned from every
// orders endpoint.
type OrderResponse struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	Status    string `json:"status"`

	PreimageHash string `json:"preimage_hash"`

	BitcoinAmountSats *int64  `json:"bitcoin_amount_sats,omitempty"`
	BitcoinAmountBTC  *string `json:"bitcoin_amount_btc,omitempty"`
	BitcoinAddress    *string `json:"bitcoin_address,omitempty"`
	BitcoinPublicKey  *string `json:"bitcoin_public_key,omitempty"`

	EthereumAddress *string `json:"ethereum_address,omitempty"`

	ResolverPublicKey string `json:"resolver_public_key"`

	BitcoinTimeoutBlocks          int64 `json:"bitcoin_timeout_blocks"`
	EthereumTimeoutBlocks         int64 `json:"ethereum_timeout_blocks"`
	BitcoinConfirmationsRequired  int64 `json:"bitcoin_confirmations_required"`
	EthereumConfirmationsRequired int64 `json:"ethereum_confirmations_required"`

	FusionOrderID   *string `json:"fusion_order_id,omitempty"`
	FusionOrderHash *string `json:"fusion_order_hash,omitempty"`

	HtlcID           *string `json:"htlc_id,omitempty"`
	HtlcAddress      *string `json:"htlc_address,omitempty"`
	HtlcRedeemScript *string `json:"htlc_redeem_script,omitempty"`
	HtlcFundingTx    *string `json:"htlc_funding_tx,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
	ExpiresAt int64 `json:"expires_at"`
}

// renderOrder converts a persisted SwapOrder into its wire shape, formatting
// the Bitcoin amount in both satoshis and a decimal BTC string via
// pkg/helpers so money fields never round-trip through ad hoc arithmetic.
func renderOrder(o *orders.SwapOrder) OrderResponse {
	resp := OrderResponse{
		ID:                            o.ID,
		Direction:                     string(o.Direction),
		Status:                        string(o.Status),
		PreimageHash:                  bytesToHex(o.PreimageHash),
		BitcoinAmountSats:             o.BitcoinAmount,
		BitcoinAddress:                o.BitcoinAddress,
		BitcoinPublicKey:              o.BitcoinPublicKey,
		EthereumAddress:               o.EthereumAddress,
		ResolverPublicKey:             o.ResolverPublicKey,
		BitcoinTimeoutBlocks:          o.BitcoinTimeoutBlocks,
		EthereumTimeoutBlocks:         o.EthereumTimeoutBlocks,
		BitcoinConfirmationsRequired:  o.BitcoinConfirmationsRequired,
		EthereumConfirmationsRequired: o.EthereumConfirmationsRequired,
		FusionOrderID:                 o.FusionOrderID,
		FusionOrderHash:               o.FusionOrderHash,
		HtlcID:                        o.HtlcID,
		HtlcAddress:                   o.HtlcAddress,
		HtlcRedeemScript:              o.HtlcRedeemScript,
		HtlcFundingTx:                 o.HtlcFundingTx,
		CreatedAt:                     o.CreatedAt.Unix(),
		UpdatedAt:                     o.UpdatedAt.Unix(),
		ExpiresAt:                     o.ExpiresAt.Unix(),
	}
	if o.BitcoinAmount != nil {
		btc := satsToBTC(*o.BitcoinAmount)
		resp.BitcoinAmountBTC = &btc
	}
	return resp
}

// SubmitFusionProofRequest is the body of POST /v1/orders/{id}/fusion-proof.
type SubmitFusionProofRequest struct {
	FusionOrderID   string `json:"fusion_order_id"`
	FusionOrderHash string `json:"fusion_order_hash"`
	RecipientPubKey string `json:"recipient_pubkey,omitempty"`
	SenderPubKey    string `json:"sender_pubkey,omitempty"`
}

// ObserveFundingRequest is the body of POST /v1/orders/{id}/funding.
type ObserveFundingRequest struct {
	TxID string `json:"txid"`
}

// ObserveConfirmationRequest is the body of POST /v1/orders/{id}/confirmation.
type ObserveConfirmationRequest struct {
	Depth int64 `json:"depth"`
}

// ObservePreimageRequest is the body of POST /v1/orders/{id}/preimage.
type ObservePreimageRequest struct {
	Preimage string `json:"preimage"`
}

// HtlcBuildRequest is the body of POST /v1/htlc/build: derive a redeem script
// and P2SH address without touching any order.
type HtlcBuildRequest struct {
	RecipientPubKey string `json:"recipient_pubkey"`
	SenderPubKey    string `json:"sender_pubkey"`
	PaymentHash     string `json:"payment_hash"`
	TimeoutHeight   int64  `json:"timeout_height"`
}

// HtlcBuildResponse is the derived script for an HtlcBuildRequest.
type HtlcBuildResponse struct {
	RedeemScript string `json:"redeem_script"`
	ScriptHash   string `json:"script_hash"`
	Address      string `json:"address"`
}

// HtlcVerifyRequest is the body of POST /v1/htlc/verify: confirm a
// counterparty-supplied redeem script matches the parameters it claims to
// encode.
type HtlcVerifyRequest struct {
	RecipientPubKey string `json:"recipient_pubkey"`
	SenderPubKey    string `json:"sender_pubkey"`
	PaymentHash     string `json:"payment_hash"`
	TimeoutHeight   int64  `json:"timeout_height"`
	RedeemScript    string `json:"redeem_script"`
}

// HtlcVerifyResponse reports whether the candidate script matched.
type HtlcVerifyResponse struct {
	Valid bool `json:"valid"`
}

// ClaimRequest is the body of POST /v1/orders/{id}/claim. The preimage is
// always checked and recorded as revealed on the order; supplying
// bitcoin_tx_hex also broadcasts that caller-signed claim transaction and
// advances the order to completed.
// The engine never custodies a private key, so it cannot build or sign this
// transaction itself.
type ClaimRequest struct {
	Preimage     string  `json:"preimage"`
	BitcoinTxHex *string `json:"bitcoin_tx_hex,omitempty"`
}

// ClaimResponse reports the outcome of a claim submission.
type ClaimResponse struct {
	Order OrderResponse `json:"order"`
	TxID  *string       `json:"txid,omitempty"`
}

// RefundReadinessResponse is returned by GET /v1/orders/{id}/refund: the
// information a caller needs to construct their own refund transaction
// out-of-band, since the engine never custodies the sender's private key.
type RefundReadinessResponse struct {
	Ready         bool   `json:"ready"`
	CurrentHeight int64  `json:"current_bitcoin_height"`
	TimeoutHeight int64  `json:"timeout_height"`
	HtlcAddress   string `json:"htlc_address,omitempty"`
	RedeemScript  string `json:"redeem_script,omitempty"`
	FundingTxID   string `json:"funding_txid,omitempty"`
}

// TxStatusResponse is the body of GET /v1/transactions/{txid}/status.
type TxStatusResponse struct {
	TxID          string `json:"txid"`
	Confirmed     bool   `json:"confirmed"`
	Confirmations int64  `json:"confirmations"`
	BlockHeight   int64  `json:"block_height,omitempty"`
	BlockTime     int64  `json:"block_time,omitempty"`
	FeeSats       int64  `json:"fee_sats,omitempty"`
}

// FeeEstimateResponse is the body of GET /v1/fees/estimate, narrowed to the
// Bitcoin-only fields this engine actually computes — Ethereum gas
// estimation belongs to the EVM-side collaborator.
type FeeEstimateResponse struct {
	BitcoinNetworkFee int64    `json:"bitcoin_network_fee"`
	ResolverFee       int64    `json:"resolver_fee"`
	TotalFee          int64    `json:"total_fee"`
	EstimatedTime     string   `json:"estimated_time"`
	Warnings          []string `json:"warnings,omitempty"`
	MinimumAmount     int64    `json:"minimum_amount"`
	MaximumAmount     int64    `json:"maximum_amount,omitempty"`
}

// WebhookRequest is the body of POST /v1/webhooks. Secret, if omitted, is
// generated by the engine and returned once in WebhookResponse; delivery and
// signing of outgoing payloads remains an external collaborator (§1).
type WebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

// WebhookResponse confirms a webhook registration. Secret is included only
// in this initial response; it is not retrievable afterward.
type WebhookResponse struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}

// HealthResponse is the body of GET /v1/health, per §6's literal
// {status, dependencies{bitcoin_node{...},database{...}}} shape.
type HealthResponse struct {
	Status       string             `json:"status"`
	Dependencies HealthDependencies `json:"dependencies"`
	UptimeSecs   int64              `json:"uptime_seconds"`
}

// HealthDependencies reports the two external systems the engine depends on.
type HealthDependencies struct {
	BitcoinNode BitcoinNodeHealth `json:"bitcoin_node"`
	Database    DatabaseHealth    `json:"database"`
}

// BitcoinNodeHealth reports whether the configured Bitcoin backend (node RPC
// or REST explorer) answered a tip-height query.
type BitcoinNodeHealth struct {
	Connected   bool   `json:"connected"`
	BlockHeight int64  `json:"block_height,omitempty"`
	Network     string `json:"network"`
}

// DatabaseHealth reports whether the order store's connection is alive.
type DatabaseHealth struct {
	Connected bool `json:"connected"`
}
