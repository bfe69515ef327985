package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-distribution-orders/internal/forms"
	"github.com/ariefcatur/go-distribution-orders/internal/fulfillment"
	"github.com/ariefcatur/go-distribution-orders/internal/logging"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

var errBadJSON = errors.New("json inválido")

type errorResp struct {
	Error     string            `json:"error"`
	Field     string            `json:"campo,omitempty"`
	Fields    map[string]string `json:"campos,omitempty"`
	Available *int              `json:"disponible,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	var (
		fe forms.Errors
		ve *orders.ValidationError
		se *orders.InsufficientStockError
		te *orders.TransportError
	)
	switch {
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest
	case errors.As(err, &fe), errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.As(err, &se),
		errors.Is(err, orders.ErrOrderClosed),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, orders.ErrAlreadyConverted),
		errors.Is(err, orders.ErrStockDeducted),
		errors.Is(err, fulfillment.ErrConfirmationRequired):
		return http.StatusConflict
	case errors.Is(err, orders.ErrSourceNotFound), errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, orders.ErrConversionFailed), errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	body := errorResp{Error: err.Error()}

	var (
		fe forms.Errors
		ve *orders.ValidationError
		se *orders.InsufficientStockError
	)
	switch {
	case errors.As(err, &fe):
		body.Error = "datos inválidos"
		body.Fields = fe
	case errors.As(err, &ve):
		body.Field = ve.Field
	case errors.As(err, &se):
		body.Available = &se.Available
	}

	if code >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", zap.Int("status", code), zap.Error(err))
		if code == http.StatusInternalServerError {
			body.Error = "error interno"
		}
	}
	writeJSON(w, code, body)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &orders.ValidationError{Field: name, Message: "id inválido"}
	}
	return id, nil
}
