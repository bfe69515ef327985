package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StockRepo deducts warehouse stock for confirmed ventas. It is driven by the
// inventario consumer; the API never calls it.
type StockRepo struct{ DB *pgxpool.Pool }

// AlreadyDeducted reports whether every item of the venta has a movement row
// (idempotency short-circuit for redelivered events).
func (r *StockRepo) AlreadyDeducted(ctx context.Context, ventaID int64, itemCount int) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM movimientos_inventario
		WHERE venta_id = $1 AND tipo = 'salida'`, ventaID).Scan(&n)
	if err != nil {
		return false, err
	}
	return itemCount > 0 && n == itemCount, nil
}

// DeductAll locks every inventario row of the warehouse (FOR UPDATE),
// subtracts and records one movement per item. If any item is short nothing
// is committed. A venta that no longer exists yields ErrNotFound.
func (r *StockRepo) DeductAll(ctx context.Context, ventaID, warehouseID int64, items []ItemQty) (ok bool, details []StockRejectedDetail, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// share lock: a concurrent DeleteVenta waits, and a deleted venta is
	// reported instead of failing the movement foreign key
	var exists int
	err = tx.QueryRow(ctx, `SELECT 1 FROM ventas WHERE id=$1 FOR SHARE`, ventaID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil, ErrNotFound
	}
	if err != nil {
		return false, nil, err
	}

	var rejects []StockRejectedDetail
	for _, it := range items {
		var stock int
		err := tx.QueryRow(ctx, `
			SELECT cantidad_disponible FROM inventario
			WHERE almacen_id=$1 AND presentacion_id=$2 FOR UPDATE`, warehouseID, it.PresentationID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			stock = 0 // absent from this warehouse
		} else if err != nil {
			return false, nil, err
		}
		if stock < it.Qty {
			rejects = append(rejects, StockRejectedDetail{
				PresentationID: it.PresentationID, Required: it.Qty, Available: stock,
			})
			continue
		}

		// movement first: a redelivered event finds the row and skips the update
		ct, err := tx.Exec(ctx, `
			INSERT INTO movimientos_inventario(venta_id, almacen_id, presentacion_id, cantidad, tipo)
			VALUES ($1,$2,$3,$4,'salida')
			ON CONFLICT (venta_id, presentacion_id, tipo) DO NOTHING`,
			ventaID, warehouseID, it.PresentationID, it.Qty)
		if err != nil {
			return false, nil, err
		}
		if ct.RowsAffected() == 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `
			UPDATE inventario SET cantidad_disponible = cantidad_disponible - $3
			WHERE almacen_id=$1 AND presentacion_id=$2`, warehouseID, it.PresentationID, it.Qty); err != nil {
			return false, nil, err
		}
	}

	if len(rejects) > 0 {
		return false, rejects, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}
