package database

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/gardenfi/swapd/internal/types"
)

// orderColumns is the column list shared by every order read path
const orderColumns = `
	order_hash, src_chain_id, dst_chain_id, maker, receiver, taker, timelock,
	maker_asset, taker_asset, making_amount, taking_amount, salt,
	maker_traits, taker_traits, args, signature, extension, order_type,
	secrets, status, deadline, src_escrow_address, dst_escrow_address,
	src_tx_hash, dst_tx_hash, filled_maker_amount, filled_taker_amount,
	src_event, dst_event, src_deploy_immutables, dst_deploy_immutables,
	src_withdraw_immutables, dst_withdraw_immutables, created_at, updated_at`

// mutableJSONFields is the whitelist accepted by UpdateOrderField
var mutableJSONFields = map[string]bool{
	"args":                    true,
	"src_event":               true,
	"dst_event":               true,
	"src_deploy_immutables":   true,
	"dst_deploy_immutables":   true,
	"src_withdraw_immutables": true,
	"dst_withdraw_immutables": true,
}

// activeLifecycleStatuses are the statuses a deadline can still expire
var activeLifecycleStatuses = []string{
	string(types.StatusUnmatched),
	string(types.StatusSourceFilled),
	string(types.StatusDestinationFilled),
	string(types.StatusFinalityConfirmed),
	string(types.StatusSourceWithdrawPending),
	string(types.StatusDestinationWithdrawPending),
}

// OrderStore handles database operations for cross-chain orders. It is the
// only cross-task shared mutable state; every mutation goes through one of
// its operations and relies on Postgres row locking for atomicity.
type OrderStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderStore creates a new order store
func NewOrderStore(db *sql.DB, logger *zap.Logger) *OrderStore {
	return &OrderStore{db: db, logger: logger}
}

// CreateOrder inserts a new order in unmatched status and returns the row
// id. A duplicate order hash yields ErrDuplicateOrder.
func (s *OrderStore) CreateOrder(signed *types.SignedOrderInput) (string, error) {
	secretsJSON, err := json.Marshal(signed.Secrets)
	if err != nil {
		return "", fmt.Errorf("failed to encode secrets: %w", err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO orders (
			id, order_hash, src_chain_id, dst_chain_id, maker, receiver, taker,
			timelock, maker_asset, taker_asset, making_amount, taking_amount,
			salt, maker_traits, taker_traits, args, signature, extension,
			order_type, secrets, status, deadline,
			src_deploy_immutables, dst_deploy_immutables,
			src_withdraw_immutables, dst_withdraw_immutables
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
		)`

	_, err = s.db.Exec(
		query,
		id,
		types.NormalizeHex(signed.OrderHash),
		int64(signed.SrcChainID),
		int64(signed.DstChainID),
		types.NormalizeHex(signed.Order.Maker),
		types.NormalizeHex(signed.Order.Receiver),
		types.NormalizeHex(signed.Taker),
		signed.Timelock,
		types.NormalizeHex(signed.Order.MakerAsset),
		types.NormalizeHex(signed.Order.TakerAsset),
		signed.Order.MakingAmount.String(),
		signed.Order.TakingAmount.String(),
		signed.Order.Salt,
		signed.Order.MakerTraits,
		signed.TakerTraits,
		rawOrDefault(signed.Args, "{}"),
		rawOrDefault(signed.Signature, "null"),
		rawOrDefault(signed.Extension, "{}"),
		string(signed.OrderType),
		string(secretsJSON),
		string(types.StatusUnmatched),
		int64(signed.Deadline),
		nullableRaw(signed.SrcDeployImmutables),
		nullableRaw(signed.DstDeployImmutables),
		nullableRaw(signed.SrcWithdrawImmutables),
		nullableRaw(signed.DstWithdrawImmutables),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return "", ErrDuplicateOrder
		}
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	return id, nil
}

// GetOrder retrieves an order by its hash
func (s *OrderStore) GetOrder(orderHash string) (*types.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE order_hash = $1"

	order, err := s.scanOrder(s.db.QueryRow(query, types.NormalizeHex(orderHash)))
	if err == sql.ErrNoRows {
		s.logger.Warn("order not found", zap.String("order_hash", orderHash))
		return nil, ErrNotFound
	}
	return order, err
}

// GetActiveOrders returns a page of unmatched orders, newest first, and
// the total unmatched count. Limit is capped at 500.
func (s *OrderStore) GetActiveOrders(limit, offset uint64) ([]*types.Order, uint64, error) {
	if limit == 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	query := "SELECT " + orderColumns + `
		FROM orders WHERE status = 'unmatched'
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.Query(query, int64(limit), int64(offset))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query active orders: %w", err)
	}
	defer rows.Close()

	var orders []*types.Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate active orders: %w", err)
	}

	var total int64
	row := s.db.QueryRow("SELECT COUNT(*) FROM orders WHERE status = 'unmatched'")
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count active orders: %w", err)
	}

	return orders, uint64(total), nil
}

// GetOrdersByChain returns orders whose source chain matches, newest first
func (s *OrderStore) GetOrdersByChain(srcChainID uint64) ([]*types.Order, error) {
	query := "SELECT " + orderColumns + `
		FROM orders WHERE src_chain_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.Query(query, int64(srcChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to query orders by chain: %w", err)
	}
	defer rows.Close()

	var orders []*types.Order
	for rows.Next() {
		order, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// HandleEscrowEvent applies one decoded escrow event to an order: the
// side's escrow address, transaction hash, raw event payload and the
// resulting status move in a single write. Escrow addresses are write-once;
// a conflicting address on a later event is dropped with a warning.
// Replaying an identical event is a no-op.
func (s *OrderStore) HandleEscrowEvent(orderHash string, kind types.EscrowEventKind, escrowAddress, txHash string, rawEvent json.RawMessage) error {
	orderHash = types.NormalizeHex(orderHash)
	escrowAddress = types.NormalizeHex(escrowAddress)
	txHash = types.NormalizeHex(txHash)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	var srcAddr, dstAddr sql.NullString
	row := tx.QueryRow(
		"SELECT status, src_escrow_address, dst_escrow_address FROM orders WHERE order_hash = $1 FOR UPDATE",
		orderHash,
	)
	if err := row.Scan(&current, &srcAddr, &dstAddr); err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("escrow event for unknown order",
				zap.String("order_hash", orderHash),
				zap.String("event", string(kind)))
			return ErrNotFound
		}
		return fmt.Errorf("failed to load order for event: %w", err)
	}

	next, err := types.NextStatus(types.OrderStatus(current), kind)
	if err != nil {
		return err
	}

	existing := dstAddr
	addressField, txField, eventField := "dst_escrow_address", "dst_tx_hash", "dst_event"
	if kind.SourceSide() {
		existing = srcAddr
		addressField, txField, eventField = "src_escrow_address", "src_tx_hash", "src_event"
	}

	if existing.Valid && existing.String != "" && existing.String != escrowAddress {
		s.logger.Warn("ignoring conflicting escrow address",
			zap.String("order_hash", orderHash),
			zap.String("have", existing.String),
			zap.String("got", escrowAddress))
		escrowAddress = existing.String
	}

	query := fmt.Sprintf(`
		UPDATE orders
		SET status = $1, %s = $2, %s = $3, %s = $4, updated_at = NOW()
		WHERE order_hash = $5`, addressField, txField, eventField)

	if _, err := tx.Exec(query, string(next), escrowAddress, txHash, nullableRaw(rawEvent), orderHash); err != nil {
		return fmt.Errorf("failed to apply escrow event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit escrow event: %w", err)
	}

	s.logger.Info("escrow event applied",
		zap.String("order_hash", orderHash),
		zap.String("event", string(kind)),
		zap.String("status", string(next)))
	return nil
}

// DetermineWithdrawalStatus classifies a Withdrawal event by the emitting
// escrow address: the source escrow settles the source side, the
// destination escrow settles the destination side. An address matching
// neither escrow of the order is a misrouted event and yields ErrNotFound.
func (s *OrderStore) DetermineWithdrawalStatus(orderHash, escrowAddress string) (types.OrderStatus, error) {
	var srcAddr, dstAddr sql.NullString
	row := s.db.QueryRow(
		"SELECT src_escrow_address, dst_escrow_address FROM orders WHERE order_hash = $1",
		types.NormalizeHex(orderHash),
	)
	if err := row.Scan(&srcAddr, &dstAddr); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load order escrows: %w", err)
	}

	addr := types.NormalizeHex(escrowAddress)
	switch {
	case srcAddr.Valid && srcAddr.String == addr:
		return types.StatusSourceSettled, nil
	case dstAddr.Valid && dstAddr.String == addr:
		return types.StatusDestinationSettled, nil
	}

	s.logger.Warn("withdrawal from address not bound to order",
		zap.String("order_hash", orderHash),
		zap.String("escrow_address", addr))
	return "", ErrNotFound
}

// UpdateOrderStatus sets the status of an order. Terminal statuses are
// never left.
func (s *OrderStore) UpdateOrderStatus(orderHash string, status types.OrderStatus) error {
	if !status.Valid() {
		return &ValidationError{Msg: fmt.Sprintf("unknown order status: %s", status)}
	}

	result, err := s.db.Exec(`
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE order_hash = $2 AND NOT (status = ANY($3))`,
		string(status), types.NormalizeHex(orderHash), pq.Array(terminalStatuses()))
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		s.logger.Warn("status update skipped",
			zap.String("order_hash", orderHash),
			zap.String("status", string(status)))
	}
	return nil
}

// UpdateSecrets replaces the secrets list of an order after validating
// every entry against its hash
func (s *OrderStore) UpdateSecrets(orderHash string, secrets []types.SecretEntry) error {
	for i := range secrets {
		if err := types.VerifySecretEntry(&secrets[i]); err != nil {
			return &ValidationError{Msg: err.Error()}
		}
	}

	secretsJSON, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to encode secrets: %w", err)
	}

	result, err := s.db.Exec(
		"UPDATE orders SET secrets = $1, updated_at = NOW() WHERE order_hash = $2",
		string(secretsJSON), types.NormalizeHex(orderHash))
	if err != nil {
		return fmt.Errorf("failed to update secrets: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SubmitSecret records a revealed secret. If an entry's hash already
// matches the secret it is filled in place; otherwise the secret is
// appended at the next free index with its sha256 hash. Submitting a
// secret that is already present is a no-op.
func (s *OrderStore) SubmitSecret(orderHash, secret string) error {
	if _, err := types.DecodeSecret(secret); err != nil {
		return &ValidationError{Msg: err.Error()}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var secretsJSON []byte
	row := tx.QueryRow("SELECT secrets FROM orders WHERE order_hash = $1 FOR UPDATE",
		types.NormalizeHex(orderHash))
	if err := row.Scan(&secretsJSON); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	var secrets []types.SecretEntry
	if len(secretsJSON) > 0 {
		if err := json.Unmarshal(secretsJSON, &secrets); err != nil {
			return fmt.Errorf("failed to decode secrets: %w", err)
		}
	}

	updated, changed := mergeSecret(secrets, secret)
	if !changed {
		return tx.Commit()
	}

	encoded, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to encode secrets: %w", err)
	}

	if _, err := tx.Exec(
		"UPDATE orders SET secrets = $1, updated_at = NOW() WHERE order_hash = $2",
		string(encoded), types.NormalizeHex(orderHash)); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	return tx.Commit()
}

// mergeSecret folds a revealed secret into a secrets list. It prefers
// filling an existing entry whose hash the secret satisfies and falls back
// to appending a fresh entry.
func mergeSecret(secrets []types.SecretEntry, secret string) ([]types.SecretEntry, bool) {
	for i := range secrets {
		if secrets[i].Revealed() && *secrets[i].Secret == secret {
			return secrets, false
		}
	}

	for i := range secrets {
		if secrets[i].Revealed() {
			continue
		}
		candidate := secrets[i]
		candidate.Secret = &secret
		if types.VerifySecretEntry(&candidate) == nil {
			secrets[i].Secret = &secret
			return secrets, true
		}
	}

	hash, err := types.HashSecret(secret)
	if err != nil {
		return secrets, false
	}
	secrets = append(secrets, types.SecretEntry{
		Index:      uint32(len(secrets)),
		Secret:     &secret,
		SecretHash: hash,
	})
	return secrets, true
}

// GetSecrets returns the secrets list of an order
func (s *OrderStore) GetSecrets(orderHash string) ([]types.SecretEntry, error) {
	var secretsJSON []byte
	row := s.db.QueryRow("SELECT secrets FROM orders WHERE order_hash = $1",
		types.NormalizeHex(orderHash))
	if err := row.Scan(&secretsJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	var secrets []types.SecretEntry
	if len(secretsJSON) > 0 {
		if err := json.Unmarshal(secretsJSON, &secrets); err != nil {
			return nil, fmt.Errorf("failed to decode secrets: %w", err)
		}
	}
	return secrets, nil
}

// UpdateOrderField sets one of the whitelisted mutable JSON fields
func (s *OrderStore) UpdateOrderField(orderHash, fieldName string, value json.RawMessage) error {
	if !mutableJSONFields[fieldName] {
		return &ValidationError{Msg: fmt.Sprintf("Invalid field name: %s", fieldName)}
	}

	query := fmt.Sprintf(
		"UPDATE orders SET %s = $1, updated_at = NOW() WHERE order_hash = $2", fieldName)
	result, err := s.db.Exec(query, string(value), types.NormalizeHex(orderHash))
	if err != nil {
		return fmt.Errorf("failed to update order field: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// EscrowAddressesByChain returns the live escrow addresses known to the
// store, grouped by the chain they were deployed on
func (s *OrderStore) EscrowAddressesByChain() (map[uint64][]string, error) {
	rows, err := s.db.Query(`
		SELECT src_chain_id, dst_chain_id, src_escrow_address, dst_escrow_address
		FROM orders
		WHERE NOT (status = ANY($1))
		  AND (src_escrow_address IS NOT NULL OR dst_escrow_address IS NOT NULL)`,
		pq.Array(terminalStatuses()))
	if err != nil {
		return nil, fmt.Errorf("failed to query escrow addresses: %w", err)
	}
	defer rows.Close()

	byChain := make(map[uint64][]string)
	for rows.Next() {
		var srcChain, dstChain int64
		var srcAddr, dstAddr sql.NullString
		if err := rows.Scan(&srcChain, &dstChain, &srcAddr, &dstAddr); err != nil {
			return nil, fmt.Errorf("failed to scan escrow addresses: %w", err)
		}
		if srcAddr.Valid && srcAddr.String != "" {
			byChain[uint64(srcChain)] = append(byChain[uint64(srcChain)], srcAddr.String)
		}
		if dstAddr.Valid && dstAddr.String != "" {
			byChain[uint64(dstChain)] = append(byChain[uint64(dstChain)], dstAddr.String)
		}
	}
	return byChain, rows.Err()
}

// MarkExpired moves orders past their deadline with no destination
// settlement into expired. Returns the number of orders affected.
func (s *OrderStore) MarkExpired(nowMillis int64) (int64, error) {
	result, err := s.db.Exec(`
		UPDATE orders SET status = 'expired', updated_at = NOW()
		WHERE deadline < $1 AND status = ANY($2)`,
		nowMillis, pq.Array(activeLifecycleStatuses))
	if err != nil {
		return 0, fmt.Errorf("failed to expire orders: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func terminalStatuses() []string {
	return []string{
		string(types.StatusSourceRefunded),
		string(types.StatusDestinationRefunded),
		string(types.StatusSourceCanceled),
		string(types.StatusDestinationCanceled),
		string(types.StatusFulfilled),
	}
}

// scanOrder scans a database row into an Order
func (s *OrderStore) scanOrder(scanner interface {
	Scan(dest ...interface{}) error
}) (*types.Order, error) {
	order := &types.Order{}
	var (
		srcChain, dstChain                 int64
		makingAmount, takingAmount         string
		filledMaker, filledTaker           sql.NullString
		args, signature, extension         []byte
		secretsJSON                        []byte
		srcEscrow, dstEscrow, srcTx, dstTx sql.NullString
		srcEvent, dstEvent                 []byte
		srcDeploy, dstDeploy               []byte
		srcWithdraw, dstWithdraw           []byte
		orderType, status                  string
	)

	err := scanner.Scan(
		&order.OrderHash,
		&srcChain,
		&dstChain,
		&order.Maker,
		&order.Receiver,
		&order.Taker,
		&order.Timelock,
		&order.MakerAsset,
		&order.TakerAsset,
		&makingAmount,
		&takingAmount,
		&order.Salt,
		&order.MakerTraits,
		&order.TakerTraits,
		&args,
		&signature,
		&extension,
		&orderType,
		&secretsJSON,
		&status,
		&order.Deadline,
		&srcEscrow,
		&dstEscrow,
		&srcTx,
		&dstTx,
		&filledMaker,
		&filledTaker,
		&srcEvent,
		&dstEvent,
		&srcDeploy,
		&dstDeploy,
		&srcWithdraw,
		&dstWithdraw,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	order.SrcChainID = uint64(srcChain)
	order.DstChainID = uint64(dstChain)
	order.OrderType = types.OrderType(orderType)
	order.Status = types.OrderStatus(status)
	order.SrcEscrowAddress = srcEscrow.String
	order.DstEscrowAddress = dstEscrow.String
	order.SrcTxHash = srcTx.String
	order.DstTxHash = dstTx.String
	order.Args = args
	order.Signature = signature
	order.Extension = extension
	order.SrcEvent = srcEvent
	order.DstEvent = dstEvent
	order.SrcDeployImmutables = srcDeploy
	order.DstDeployImmutables = dstDeploy
	order.SrcWithdrawImmutables = srcWithdraw
	order.DstWithdrawImmutables = dstWithdraw

	if order.MakingAmount, err = types.ParseBigInt(trimNumeric(makingAmount)); err != nil {
		return nil, fmt.Errorf("failed to parse making amount: %w", err)
	}
	if order.TakingAmount, err = types.ParseBigInt(trimNumeric(takingAmount)); err != nil {
		return nil, fmt.Errorf("failed to parse taking amount: %w", err)
	}
	if order.FilledMakerAmount, err = types.ParseBigInt(trimNumeric(filledMaker.String)); err != nil {
		return nil, fmt.Errorf("failed to parse filled maker amount: %w", err)
	}
	if order.FilledTakerAmount, err = types.ParseBigInt(trimNumeric(filledTaker.String)); err != nil {
		return nil, fmt.Errorf("failed to parse filled taker amount: %w", err)
	}

	if len(secretsJSON) > 0 {
		if err := json.Unmarshal(secretsJSON, &order.Secrets); err != nil {
			return nil, fmt.Errorf("failed to decode secrets: %w", err)
		}
	}

	return order, nil
}

// trimNumeric strips the fractional part Postgres NUMERIC may render.
// Amounts are integral base-unit quantities.
func trimNumeric(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s[:i]
		}
	}
	return s
}

func rawOrDefault(raw json.RawMessage, def string) string {
	if len(raw) == 0 {
		return def
	}
	return string(raw)
}

func nullableRaw(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
