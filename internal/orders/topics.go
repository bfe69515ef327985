package orders

import "strconv"

const (
	TopicPedidoCreated   = "pedido.created"
	TopicPedidoConverted = "pedido.converted"
	TopicVentaCreated    = "venta.created"
	TopicPagoRegistrado  = "venta.pago.registrado"
	TopicStockDeducted   = "inventario.stock.deducted"
	TopicStockRejected   = "inventario.stock.rejected"
)

// Partition key = id de la venta/pedido, so events of one record stay ordered.
func PartitionKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
