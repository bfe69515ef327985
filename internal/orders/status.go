package orders

type PedidoStatus string

const (
	StatusProgramado PedidoStatus = "programado"
	StatusConfirmado PedidoStatus = "confirmado"
	StatusEntregado  PedidoStatus = "entregado"
	StatusCancelado  PedidoStatus = "cancelado"
)

var validNext = map[PedidoStatus]map[PedidoStatus]bool{
	StatusProgramado: {StatusConfirmado: true, StatusEntregado: true, StatusCancelado: true},
	StatusConfirmado: {StatusEntregado: true, StatusCancelado: true},
	StatusEntregado:  {},
	StatusCancelado:  {},
}

func CanTransition(from, to PedidoStatus) bool {
	return validNext[from][to]
}

func (s PedidoStatus) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s PedidoStatus) Terminal() bool {
	return s == StatusEntregado || s == StatusCancelado
}

// EnsureOpen rejects any mutation of a delivered or cancelled pedido.
func (p *Pedido) EnsureOpen() error {
	if p.Status.Terminal() {
		return ErrOrderClosed
	}
	return nil
}

func (p *Pedido) Confirm() error { return p.advance(StatusConfirmado) }

func (p *Pedido) Cancel() error { return p.advance(StatusCancelado) }

// Deliver marks the pedido as converted into a venta. Only the conversion
// workflow calls it.
func (p *Pedido) Deliver() error { return p.advance(StatusEntregado) }

// Transition is the user-facing status change; entregado is not reachable
// through it.
func (p *Pedido) Transition(to PedidoStatus) error {
	if err := p.EnsureOpen(); err != nil {
		return err
	}
	switch to {
	case StatusConfirmado:
		return p.Confirm()
	case StatusCancelado:
		return p.Cancel()
	default:
		return ErrInvalidTransition
	}
}

func (p *Pedido) advance(to PedidoStatus) error {
	if err := p.EnsureOpen(); err != nil {
		return err
	}
	if !CanTransition(p.Status, to) {
		return ErrInvalidTransition
	}
	p.Status = to
	return nil
}
