package orders

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity   = errors.New("cantidad inválida: debe ser un entero positivo")
	ErrInvalidPrice      = errors.New("precio inválido: debe ser un decimal no negativo")
	ErrPriceScale        = errors.New("precio inválido: máximo 2 decimales")
	ErrAmountScale       = errors.New("monto inválido: máximo 4 decimales")
	ErrIndexOutOfRange   = errors.New("línea fuera de rango")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrOrderClosed       = errors.New("el pedido está cerrado y no admite cambios")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrAlreadyConverted  = errors.New("el pedido ya fue convertido en venta")
	ErrSourceNotFound    = errors.New("pedido de origen no encontrado")
	ErrConversionFailed  = errors.New("no se pudo convertir el pedido en venta")
	ErrNotFound          = errors.New("registro no encontrado")
	ErrStockDeducted     = errors.New("la venta ya descontó stock y no puede eliminarse")
)

// ValidationError is a field-level, recoverable error. It never implies a
// mutation took place.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}

type InsufficientStockError struct {
	PresentationID int64
	WarehouseID    int64
	Requested      int
	Available      int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente: disponible %d", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// TransportError wraps a failure of an external collaborator (database,
// broker, cache). Retrying is always safe.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err unless it is nil or already a domain error that the
// caller should see as-is.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrOrderClosed) || errors.Is(err, ErrStockDeducted) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
