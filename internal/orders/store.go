package orders

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bitcoinswap/htlc-engine/pkg/logging"
)

// Store persists SwapOrder rows in a single `orders` table and serialises
// mutations to the same order id with a per-id lock, per the engine's
// concurrency model (§5: per-order serialisation, no cross-order ordering).
type Store struct {
	db       *sql.DB
	log      *logging.Logger
	rowLocks sync.Map // id -> *sync.Mutex
}

// Open opens (creating if necessary) a SQLite-backed order store at dsn and
// applies schema migrations in strict version order.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// SQLite only supports one writer; a single shared connection avoids
	// SQLITE_BUSY under concurrent order mutations.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, log: logging.GetDefault().Component("orders.store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the underlying database connection is alive, for the
// health endpoint's dependency check.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// migrations is the strict version-ordered schema history (§6: "Migrations
// applied at startup in strict version order"). Each entry's index+1 is its
// version; new migrations are appended, never edited or reordered.
var migrations = []string{
	// 1: the orders table and its lookup indexes.
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		direction TEXT NOT NULL,
		status TEXT NOT NULL,

		preimage_hash TEXT NOT NULL,

		bitcoin_amount INTEGER,
		bitcoin_address TEXT,
		bitcoin_public_key TEXT,

		ethereum_address TEXT,

		resolver_public_key TEXT NOT NULL,

		bitcoin_timeout_blocks INTEGER NOT NULL,
		ethereum_timeout_blocks INTEGER NOT NULL,

		bitcoin_confirmations_required INTEGER NOT NULL,
		ethereum_confirmations_required INTEGER NOT NULL,

		fusion_order_id TEXT,
		fusion_order_hash TEXT,

		htlc_id TEXT,
		htlc_address TEXT,
		htlc_redeem_script TEXT,
		htlc_funding_tx TEXT,

		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX idx_orders_status ON orders(status);
	CREATE INDEX idx_orders_expires ON orders(expires_at);`,
}

// migrate applies every migration newer than schema_migrations' recorded max
// version, in order, each in its own transaction that also records the
// version — so a crash mid-migration never leaves the version row out of
// sync with the schema it names.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		version := i + 1
		if version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version, err)
		}
		if _, err := tx.Exec(stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version, err)
		}
		s.log.Infof("applied schema migration %d", version)
	}
	return nil
}

// lockFor returns the per-order-id mutex, creating it if this is the first
// time id has been touched in this process.
func (s *Store) lockFor(id string) *sync.Mutex {
	mu, _ := s.rowLocks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// WithOrderLock runs fn with exclusive access to id's row, serialising
// concurrent events on the same order (§5).
func (s *Store) WithOrderLock(id string, fn func() error) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// Insert persists a new order row. id, created_at, updated_at, expires_at
// must already be set by the caller (the state machine computes these).
func (s *Store) Insert(o *SwapOrder) error {
	_, err := s.db.Exec(`
		INSERT INTO orders (
			id, direction, status, preimage_hash,
			bitcoin_amount, bitcoin_address, bitcoin_public_key,
			ethereum_address, resolver_public_key,
			bitcoin_timeout_blocks, ethereum_timeout_blocks,
			bitcoin_confirmations_required, ethereum_confirmations_required,
			fusion_order_id, fusion_order_hash,
			htlc_id, htlc_address, htlc_redeem_script, htlc_funding_tx,
			created_at, updated_at, expires_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ID, o.Direction, o.Status, hex.EncodeToString(o.PreimageHash),
		o.BitcoinAmount, o.BitcoinAddress, o.BitcoinPublicKey,
		o.EthereumAddress, o.ResolverPublicKey,
		o.BitcoinTimeoutBlocks, o.EthereumTimeoutBlocks,
		o.BitcoinConfirmationsRequired, o.EthereumConfirmationsRequired,
		o.FusionOrderID, o.FusionOrderHash,
		o.HtlcID, o.HtlcAddress, o.HtlcRedeemScript, o.HtlcFundingTx,
		o.CreatedAt.Unix(), o.UpdatedAt.Unix(), o.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// ErrNotFound is returned by Get when no order has the given id.
var ErrNotFound = fmt.Errorf("order not found")

// Get loads an order by id.
func (s *Store) Get(id string) (*SwapOrder, error) {
	row := s.db.QueryRow(`
		SELECT id, direction, status, preimage_hash,
			bitcoin_amount, bitcoin_address, bitcoin_public_key,
			ethereum_address, resolver_public_key,
			bitcoin_timeout_blocks, ethereum_timeout_blocks,
			bitcoin_confirmations_required, ethereum_confirmations_required,
			fusion_order_id, fusion_order_hash,
			htlc_id, htlc_address, htlc_redeem_script, htlc_funding_tx,
			created_at, updated_at, expires_at
		FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

func scanOrder(row *sql.Row) (*SwapOrder, error) {
	var o SwapOrder
	var preimageHashHex string
	var createdAt, updatedAt, expiresAt int64

	err := row.Scan(
		&o.ID, &o.Direction, &o.Status, &preimageHashHex,
		&o.BitcoinAmount, &o.BitcoinAddress, &o.BitcoinPublicKey,
		&o.EthereumAddress, &o.ResolverPublicKey,
		&o.BitcoinTimeoutBlocks, &o.EthereumTimeoutBlocks,
		&o.BitcoinConfirmationsRequired, &o.EthereumConfirmationsRequired,
		&o.FusionOrderID, &o.FusionOrderHash,
		&o.HtlcID, &o.HtlcAddress, &o.HtlcRedeemScript, &o.HtlcFundingTx,
		&createdAt, &updatedAt, &expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.PreimageHash, err = hex.DecodeString(preimageHashHex)
	if err != nil {
		return nil, fmt.Errorf("decode preimage_hash: %w", err)
	}
	o.CreatedAt = time.Unix(createdAt, 0).UTC()
	o.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	o.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &o, nil
}

// Update replaces an order row in full. Callers must hold WithOrderLock for
// o.ID around read-modify-write sequences.
func (s *Store) Update(o *SwapOrder) error {
	res, err := s.db.Exec(`
		UPDATE orders SET
			status = ?, preimage_hash = ?,
			bitcoin_amount = ?, bitcoin_address = ?, bitcoin_public_key = ?,
			ethereum_address = ?,
			fusion_order_id = ?, fusion_order_hash = ?,
			htlc_id = ?, htlc_address = ?, htlc_redeem_script = ?, htlc_funding_tx = ?,
			updated_at = ?
		WHERE id = ?`,
		o.Status, hex.EncodeToString(o.PreimageHash),
		o.BitcoinAmount, o.BitcoinAddress, o.BitcoinPublicKey,
		o.EthereumAddress,
		o.FusionOrderID, o.FusionOrderHash,
		o.HtlcID, o.HtlcAddress, o.HtlcRedeemScript, o.HtlcFundingTx,
		o.UpdatedAt.Unix(),
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// NonTerminalExpired returns ids of every non-terminal order whose
// expires_at has passed, for the expiry sweep (§4.5 ExpirySweep).
func (s *Store) NonTerminalExpired(now time.Time) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT id FROM orders
		WHERE expires_at <= ? AND status NOT IN (?, ?, ?)`,
		now.Unix(), StatusCompleted, StatusExpired, StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("query expired orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
