package redisx

import (
	"fmt"
	"time"
)

const (
	// Conversion guard: idem:pedido:convert:{pedido_id} -> "1"
	KeyIdemPedidoConvert = "idem:pedido:convert:%d"

	// Payment status cache: venta_status:{venta_id} -> {"estado_pago": "...", "updated_at": "..."}
	KeyVentaStatus = "venta_status:%d"

	// Dedup event processing: dedup:{service}:{id} (id = event_id or venta_id:phase)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func ConvertKey(pedidoID int64) string { return fmt.Sprintf(KeyIdemPedidoConvert, pedidoID) }

func VentaStatusKey(ventaID int64) string { return fmt.Sprintf(KeyVentaStatus, ventaID) }

func DedupKey(service, id string) string { return fmt.Sprintf(KeyDedup, service, id) }
