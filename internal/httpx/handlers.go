package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-distribution-orders/internal/forms"
	"github.com/ariefcatur/go-distribution-orders/internal/fulfillment"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

// Fulfillment is the slice of *fulfillment.Service the handlers use.
type Fulfillment interface {
	Presentations(ctx context.Context, warehouseID int64) ([]orders.Presentation, error)

	GetPedido(ctx context.Context, id int64) (*orders.Pedido, error)
	CreatePedido(ctx context.Context, f forms.OrderForm) (*fulfillment.PedidoResult, error)
	UpdatePedido(ctx context.Context, id int64, f forms.OrderForm) (*fulfillment.PedidoResult, error)
	DeletePedido(ctx context.Context, id int64) error
	TransitionPedido(ctx context.Context, id int64, to orders.PedidoStatus) (*orders.Pedido, error)
	ChangePedidoWarehouse(ctx context.Context, id, warehouseID int64, confirmed bool) (*orders.Pedido, error)
	ConvertPedido(ctx context.Context, req fulfillment.ConvertRequest) (*fulfillment.ConvertResult, error)

	GetVenta(ctx context.Context, id int64) (*orders.Venta, error)
	CreateVenta(ctx context.Context, f forms.OrderForm) (*orders.Venta, error)
	UpdateVenta(ctx context.Context, id int64, f forms.OrderForm) (*orders.Venta, error)
	DeleteVenta(ctx context.Context, id int64) error
	VentaStatus(ctx context.Context, id int64) (orders.PaymentStatus, error)
	RecordPayment(ctx context.Context, ventaID int64, f forms.PaymentForm) (*orders.Venta, orders.Payment, error)
	ListPayments(ctx context.Context, ventaID int64) ([]orders.Payment, error)
}

type OrdersHandler struct {
	Svc     Fulfillment
	Timeout time.Duration
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/almacenes/{id}/presentaciones", h.listPresentations)

	r.Route("/pedidos", func(r chi.Router) {
		r.Post("/", h.createPedido)
		r.Get("/{id}", h.getPedido)
		r.Put("/{id}", h.updatePedido)
		r.Delete("/{id}", h.deletePedido)
		r.Post("/{id}/estado", h.transitionPedido)
		r.Post("/{id}/almacen", h.changeWarehouse)
		r.Post("/{id}/convertir", h.convertPedido)
	})

	r.Route("/ventas", func(r chi.Router) {
		r.Post("/", h.createVenta)
		r.Get("/{id}", h.getVenta)
		r.Put("/{id}", h.updateVenta)
		r.Delete("/{id}", h.deleteVenta)
		r.Get("/{id}/estado", h.ventaStatus)
		r.Post("/{id}/pagos", h.recordPayment)
		r.Get("/{id}/pagos", h.listPayments)
	})
}

func (h *OrdersHandler) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	d := h.Timeout
	if d <= 0 {
		d = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), d)
}

func (h *OrdersHandler) listPresentations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	ps, err := h.Svc.Presentations(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]presentationResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, presentationResp{
			ID: p.ID, ProductID: p.ProductID, Name: p.Name, Capacity: p.Capacity,
			UnitPrice: p.UnitPrice, Available: p.Available,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ---- pedidos ----

func (h *OrdersHandler) createPedido(w http.ResponseWriter, r *http.Request) {
	var f forms.OrderForm
	if err := decode(r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	res, err := h.Svc.CreatePedido(ctx, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPedido(res.Pedido, res.Warnings))
}

func (h *OrdersHandler) getPedido(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	p, err := h.Svc.GetPedido(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPedido(p, nil))
}

func (h *OrdersHandler) updatePedido(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f forms.OrderForm
	if err := decode(r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	res, err := h.Svc.UpdatePedido(ctx, id, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPedido(res.Pedido, res.Warnings))
}

func (h *OrdersHandler) deletePedido(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	if err := h.Svc.DeletePedido(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transitionReq struct {
	Status orders.PedidoStatus `json:"estado"`
}

func (h *OrdersHandler) transitionPedido(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transitionReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	p, err := h.Svc.TransitionPedido(ctx, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPedido(p, nil))
}

type warehouseReq struct {
	WarehouseID int64 `json:"almacen_id"`
	Confirm     bool  `json:"confirm"`
}

func (h *OrdersHandler) changeWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req warehouseReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	p, err := h.Svc.ChangePedidoWarehouse(ctx, id, req.WarehouseID, req.Confirm)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPedido(p, nil))
}

type convertReq struct {
	WarehouseID int64              `json:"almacen_id,omitempty"`
	PaymentType orders.PaymentType `json:"tipo_pago,omitempty"`
}

func (h *OrdersHandler) convertPedido(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req convertReq
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	res, err := h.Svc.ConvertPedido(ctx, fulfillment.ConvertRequest{
		PedidoID:    id,
		WarehouseID: req.WarehouseID,
		PaymentType: req.PaymentType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := toVenta(res.Venta)
	if res.Warning != nil {
		out.Warning = res.Warning.Error()
	}
	writeJSON(w, http.StatusCreated, out)
}

// ---- ventas ----

func (h *OrdersHandler) createVenta(w http.ResponseWriter, r *http.Request) {
	var f forms.OrderForm
	if err := decode(r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	v, err := h.Svc.CreateVenta(ctx, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVenta(v))
}

func (h *OrdersHandler) getVenta(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	v, err := h.Svc.GetVenta(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVenta(v))
}

func (h *OrdersHandler) updateVenta(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f forms.OrderForm
	if err := decode(r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	v, err := h.Svc.UpdateVenta(ctx, id, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVenta(v))
}

func (h *OrdersHandler) deleteVenta(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	if err := h.Svc.DeleteVenta(ctx, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) ventaStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	st, err := h.Svc.VentaStatus(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"venta_id": id, "estado_pago": st})
}

func (h *OrdersHandler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f forms.PaymentForm
	if err := decode(r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	v, p, err := h.Svc.RecordPayment(ctx, id, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"pago": toPayment(p), "venta": toVenta(v)})
}

func (h *OrdersHandler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := h.ctx(r)
	defer cancel()

	ps, err := h.Svc.ListPayments(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]paymentResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPayment(p))
	}
	writeJSON(w, http.StatusOK, out)
}
