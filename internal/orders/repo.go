package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo implements the catalog, pedido, venta and pago stores on Postgres.
// Totals are never written; they are derived from the item rows.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) ListPresentations(ctx context.Context, warehouseID int64) ([]Presentation, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.producto_id, p.nombre, p.capacidad, p.precio_venta::text, i.cantidad_disponible
		FROM presentaciones p
		JOIN inventario i ON i.presentacion_id = p.id AND i.almacen_id = $1
		WHERE p.activo
		ORDER BY p.nombre`, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Presentation
	for rows.Next() {
		var (
			p     Presentation
			price string
		)
		if err := rows.Scan(&p.ID, &p.ProductID, &p.Name, &p.Capacity, &price, &p.Available); err != nil {
			return nil, err
		}
		if p.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("presentacion %d: precio %q: %w", p.ID, price, err)
		}
		if p.Available < 0 {
			p.Available = 0
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ---- pedidos ----

func (r *Repo) GetPedido(ctx context.Context, id int64) (*Pedido, error) {
	p := &Pedido{ID: id}
	var status string
	err := r.DB.QueryRow(ctx, `
		SELECT cliente_id, COALESCE(almacen_id, 0), fecha_entrega, estado, notas, created_at, updated_at
		FROM pedidos WHERE id=$1`, id).
		Scan(&p.ClientID, &p.WarehouseID, &p.Date, &status, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Status = PedidoStatus(status)

	lines, err := r.loadLines(ctx, r.DB, `
		SELECT id, presentacion_id, cantidad, precio_estimado::text
		FROM pedido_items WHERE pedido_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	p.Lines = NewLineSet(lines...)
	return p, nil
}

func (r *Repo) CreatePedido(ctx context.Context, p *Pedido) (*Pedido, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := *p
	if err := tx.QueryRow(ctx, `
		INSERT INTO pedidos(cliente_id, almacen_id, fecha_entrega, estado, notas)
		VALUES ($1,NULLIF($2::bigint, 0),$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		p.ClientID, p.WarehouseID, p.Date, string(p.Status), p.Notes,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	lines, err := insertLines(ctx, tx, `
		INSERT INTO pedido_items(pedido_id, presentacion_id, cantidad, precio_estimado)
		VALUES ($1,$2,$3,$4) RETURNING id, precio_estimado::text`, out.ID, p.Lines.Lines())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	out.Lines = NewLineSet(lines...)
	return &out, nil
}

// UpdatePedido rewrites header and the full line set. Closed pedidos are
// refused at the row level too.
func (r *Repo) UpdatePedido(ctx context.Context, p *Pedido) (*Pedido, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := *p
	err = tx.QueryRow(ctx, `
		UPDATE pedidos SET cliente_id=$2, almacen_id=NULLIF($3::bigint, 0), fecha_entrega=$4, estado=$5, notas=$6, updated_at=now()
		WHERE id=$1 AND estado NOT IN ('entregado','cancelado')
		RETURNING updated_at`,
		p.ID, p.ClientID, p.WarehouseID, p.Date, string(p.Status), p.Notes,
	).Scan(&out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.closedOrMissing(ctx, tx, `SELECT estado FROM pedidos WHERE id=$1`, p.ID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pedido_items WHERE pedido_id=$1`, p.ID); err != nil {
		return nil, err
	}
	lines, err := insertLines(ctx, tx, `
		INSERT INTO pedido_items(pedido_id, presentacion_id, cantidad, precio_estimado)
		VALUES ($1,$2,$3,$4) RETURNING id, precio_estimado::text`, p.ID, p.Lines.Lines())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	out.Lines = NewLineSet(lines...)
	return &out, nil
}

func (r *Repo) UpdatePedidoStatus(ctx context.Context, id int64, status PedidoStatus) error {
	ct, err := r.DB.Exec(ctx, `UPDATE pedidos SET estado=$2, updated_at=now() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeletePedido(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM pedidos WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// ---- ventas ----

func (r *Repo) GetVenta(ctx context.Context, id int64) (*Venta, error) {
	v := &Venta{ID: id}
	var tipo, status string
	err := r.DB.QueryRow(ctx, `
		SELECT cliente_id, almacen_id, fecha, tipo_pago, estado_pago, pedido_id, notas, created_at, updated_at
		FROM ventas WHERE id=$1`, id).
		Scan(&v.ClientID, &v.WarehouseID, &v.Date, &tipo, &status, &v.PedidoID, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.PaymentType = PaymentType(tipo)
	v.Status = PaymentStatus(status)

	lines, err := r.loadLines(ctx, r.DB, `
		SELECT id, presentacion_id, cantidad, precio_unitario::text
		FROM venta_items WHERE venta_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	v.Lines = NewLineSet(lines...)

	if v.Payments, err = r.ListPaymentsByVenta(ctx, id); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Repo) CreateVenta(ctx context.Context, v *Venta) (*Venta, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := *v
	out.Payments = nil
	out.Refresh()
	if err := tx.QueryRow(ctx, `
		INSERT INTO ventas(cliente_id, almacen_id, fecha, tipo_pago, estado_pago, pedido_id, notas)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		v.ClientID, v.WarehouseID, v.Date, string(v.PaymentType), string(out.Status), v.PedidoID, v.Notes,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	lines, err := insertLines(ctx, tx, `
		INSERT INTO venta_items(venta_id, presentacion_id, cantidad, precio_unitario)
		VALUES ($1,$2,$3,$4) RETURNING id, precio_unitario::text`, out.ID, v.Lines.Lines())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	out.Lines = NewLineSet(lines...)
	return &out, nil
}

func (r *Repo) UpdateVenta(ctx context.Context, v *Venta) (*Venta, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := *v
	err = tx.QueryRow(ctx, `
		UPDATE ventas SET cliente_id=$2, almacen_id=$3, fecha=$4, tipo_pago=$5, estado_pago=$6, notas=$7, updated_at=now()
		WHERE id=$1 AND estado_pago <> 'pagado'
		RETURNING updated_at`,
		v.ID, v.ClientID, v.WarehouseID, v.Date, string(v.PaymentType), string(v.Status), v.Notes,
	).Scan(&out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.closedOrMissing(ctx, tx, `SELECT estado_pago FROM ventas WHERE id=$1`, v.ID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM venta_items WHERE venta_id=$1`, v.ID); err != nil {
		return nil, err
	}
	lines, err := insertLines(ctx, tx, `
		INSERT INTO venta_items(venta_id, presentacion_id, cantidad, precio_unitario)
		VALUES ($1,$2,$3,$4) RETURNING id, precio_unitario::text`, v.ID, v.Lines.Lines())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	out.Lines = NewLineSet(lines...)
	return &out, nil
}

// DeleteVenta removes a venta that has not moved stock yet. Once the
// inventario consumer recorded movements it returns ErrStockDeducted.
func (r *Repo) DeleteVenta(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// the row lock makes a concurrent movement insert wait for this delete
	var deducted bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM movimientos_inventario WHERE venta_id = v.id)
		FROM ventas v WHERE v.id=$1 FOR UPDATE`, id).Scan(&deducted)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if deducted {
		return ErrStockDeducted
	}
	if _, err := tx.Exec(ctx, `DELETE FROM ventas WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ---- pagos ----

func (r *Repo) ListPaymentsByVenta(ctx context.Context, ventaID int64) ([]Payment, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, venta_id, monto::text, fecha, metodo_pago
		FROM pagos WHERE venta_id=$1 ORDER BY fecha, id`, ventaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var (
			p      Payment
			amount string
		)
		if err := rows.Scan(&p.ID, &p.VentaID, &amount, &p.Date, &p.Method); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("pago %d: monto %q: %w", p.ID, amount, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreatePayment appends a payment row and stores the recomputed status in
// the same transaction.
func (r *Repo) CreatePayment(ctx context.Context, p Payment, status PaymentStatus) (Payment, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Payment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var amount string
	if err := tx.QueryRow(ctx, `
		INSERT INTO pagos(venta_id, monto, fecha, metodo_pago)
		VALUES ($1,$2,$3,$4) RETURNING id, monto::text`,
		p.VentaID, p.Amount.String(), p.Date, p.Method,
	).Scan(&p.ID, &amount); err != nil {
		return Payment{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return Payment{}, fmt.Errorf("pago %d: monto %q: %w", p.ID, amount, err)
	}
	ct, err := tx.Exec(ctx, `UPDATE ventas SET estado_pago=$2, updated_at=now() WHERE id=$1`, p.VentaID, string(status))
	if err != nil {
		return Payment{}, err
	}
	if ct.RowsAffected() != 1 {
		return Payment{}, ErrNotFound
	}
	return p, tx.Commit(ctx)
}

// ---- helpers ----

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) loadLines(ctx context.Context, q querier, sql string, ownerID int64) ([]OrderLine, error) {
	rows, err := q.Query(ctx, sql, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var (
			l     OrderLine
			price string
		)
		if err := rows.Scan(&l.ID, &l.PresentationID, &l.Quantity, &price); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("item %d: precio %q: %w", l.ID, price, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// insertLines returns the lines as stored; sql must return the id and the
// persisted price as text.
func insertLines(ctx context.Context, tx pgx.Tx, sql string, ownerID int64, lines []OrderLine) ([]OrderLine, error) {
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		var price string
		if err := tx.QueryRow(ctx, sql, ownerID, l.PresentationID, l.Quantity, l.UnitPrice.String()).Scan(&l.ID, &price); err != nil {
			return nil, fmt.Errorf("insert item presentacion=%d: %w", l.PresentationID, err)
		}
		stored, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("item %d: precio %q: %w", l.ID, price, err)
		}
		l.UnitPrice = stored
		out = append(out, l)
	}
	return out, nil
}

func (r *Repo) closedOrMissing(ctx context.Context, q querier, sql string, id int64) error {
	var s string
	err := q.QueryRow(ctx, sql, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrOrderClosed
}
