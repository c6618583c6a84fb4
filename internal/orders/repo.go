package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, order_number, customer_name, customer_phone, customer_address,
	total_amount, status, payment_status, razorpay_order_id, razorpay_payment_id,
	razorpay_signature, is_flagged, client_ip, whatsapp_sent, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address,
		&o.TotalAmount, &o.Status, &o.PaymentStatus, &o.RazorpayOrderID, &o.RazorpayPaymentID,
		&o.RazorpaySignature, &o.IsFlagged, &o.ClientIP, &o.WhatsAppSent, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create persists an order and its item snapshots in one transaction and
// assigns the next WLO order number.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	if err := tx.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&seq); err != nil {
		return err
	}
	o.OrderNumber = fmt.Sprintf("WLO-%04d", seq)

	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, order_number, customer_name, customer_phone, customer_address,
			total_amount, status, payment_status, razorpay_order_id, is_flagged, client_ip, whatsapp_sent)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		o.ID, o.OrderNumber, o.Customer.Name, o.Customer.Phone, o.Customer.Address,
		o.TotalAmount, o.Status, o.PaymentStatus, o.RazorpayOrderID, o.IsFlagged, o.ClientIP, o.WhatsAppSent,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, name, unit_price, qty, image)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, it.ProductID, it.Name, it.UnitPrice, it.Qty, it.Image); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) items(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT product_id, name, unit_price, qty, image FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPrice, &it.Qty, &it.Image); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.items(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// FindByRazorpayOrderID resolves the local order from the gateway
// correlation id. Reconciliation keys off this, never a client-passed local
// id alone.
func (r *Repo) FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE razorpay_order_id=$1 AND razorpay_order_id <> ''`, razorpayOrderID))
	if err != nil {
		return nil, err
	}
	if o.Items, err = r.items(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// MarkPaid is the atomic pending->paid transition: it applies only if the
// order is still payment-pending and reports whether it did. Callers gate
// stock deduction on that report, which is what makes duplicate webhook and
// callback deliveries safe.
func (r *Repo) MarkPaid(ctx context.Context, razorpayOrderID, paymentID, signature string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET payment_status=$2, status=$3, razorpay_payment_id=$4,
		    razorpay_signature = CASE WHEN $5 <> '' THEN $5 ELSE razorpay_signature END,
		    updated_at=now()
		WHERE razorpay_order_id=$1 AND razorpay_order_id <> '' AND payment_status=$6`,
		razorpayOrderID, PaymentPaid, StatusConfirmed, paymentID, signature, PaymentPending)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// MarkFailed flags a tampered callback. Guarded to payment-pending orders so
// a junk callback cannot downgrade an order that already reconciled as paid.
func (r *Repo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_status=$2, is_flagged=TRUE, updated_at=now()
		WHERE id=$1 AND payment_status=$3`,
		id, PaymentFailed, PaymentPending)
	return err
}

// MarkRefunded applies paid->refunded/cancelled; reports whether it did.
func (r *Repo) MarkRefunded(ctx context.Context, id string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_status=$2, status=$3, updated_at=now()
		WHERE id=$1 AND payment_status=$4`,
		id, PaymentRefunded, StatusCancelled, PaymentPaid)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) MarkWhatsAppSent(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `UPDATE orders SET whatsapp_sent=TRUE, updated_at=now() WHERE id=$1`, id)
	return err
}

// List returns orders newest-first with an optional status filter, plus the
// total count for pagination.
func (r *Repo) List(ctx context.Context, status Status, page, limit int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := ``
	args := []any{}
	if status != "" {
		args = append(args, status)
		where = `WHERE status = $1`
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, (page-1)*limit)
	q := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		orderCols, where, len(args)-1, len(args))
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address,
			&o.TotalAmount, &o.Status, &o.PaymentStatus, &o.RazorpayOrderID, &o.RazorpayPaymentID,
			&o.RazorpaySignature, &o.IsFlagged, &o.ClientIP, &o.WhatsAppSent, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range out {
		if out[i].Items, err = r.items(ctx, out[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return out, total, nil
}

// UpdateStatus applies an admin lifecycle transition after validating it
// against the state machine.
func (r *Repo) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	if _, err := r.DB.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status=$3`, id, to, o.Status); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}
