package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOrder() OrderForm {
	return OrderForm{
		ClientID:    "3",
		WarehouseID: "1",
		Date:        "2026-10-19",
		Lines: []LineForm{
			{PresentationID: "7", Quantity: "3", UnitPrice: "15.50"},
			{PresentationID: "9", Quantity: "1", UnitPrice: "8,00"},
		},
	}
}

func TestOrderFormValid(t *testing.T) {
	assert.NoError(t, validOrder().Validate().Err())
}

func TestOrderFormRequiredFields(t *testing.T) {
	f := OrderForm{}
	errs := f.Validate()

	assert.Equal(t, msgRequired, errs["cliente_id"])
	assert.Equal(t, msgRequired, errs["almacen_id"])
	assert.Equal(t, msgRequired, errs["fecha"])
	assert.Equal(t, msgNoLines, errs["items"])
	require.Error(t, errs.Err())
}

func TestOrderFormLineRules(t *testing.T) {
	f := validOrder()
	f.Lines[0].Quantity = "0"
	f.Lines[1].UnitPrice = "-2"
	f.Date = "19/10/2026"
	f.PaymentType = "trueque"

	errs := f.Validate()
	assert.Equal(t, msgPositiveInt, errs["items[0].cantidad"])
	assert.Equal(t, msgNonNegative, errs["items[1].precio_unitario"])
	assert.Equal(t, msgDate, errs["fecha"])
	assert.Equal(t, msgPaymentType, errs["tipo_pago"])
	assert.Len(t, errs, 4)
}

func TestPaymentForm(t *testing.T) {
	ok := PaymentForm{VentaID: "4", Amount: "10.25", Date: "2026-10-19", Method: "efectivo"}
	assert.Empty(t, ok.Validate())

	bad := PaymentForm{VentaID: "4", Amount: "0", Date: "2026-10-19"}
	errs := bad.Validate()
	assert.Equal(t, msgPositive, errs["monto"])
	assert.Equal(t, msgRequired, errs["metodo_pago"])
}

func TestLotFormDryNotOverWet(t *testing.T) {
	tests := []struct {
		name    string
		wet     string
		dry     string
		wantErr string
	}{
		{name: "dry below wet", wet: "10.5", dry: "9"},
		{name: "equal", wet: "10", dry: "10"},
		{name: "dry over wet", wet: "10", dry: "10.01", wantErr: msgDryOverWet},
		{name: "only wet", wet: "10"},
		{name: "neither"},
		{name: "negative dry", wet: "10", dry: "-1", wantErr: msgNonNegative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := LotForm{PresentationID: "1", Code: "L-1", PesoHumedoKg: tt.wet, PesoSecoKg: tt.dry}
			errs := f.Validate()
			assert.Equal(t, tt.wantErr, errs["peso_seco_kg"])
		})
	}
}

func TestRulesKeepFirstMessage(t *testing.T) {
	r := Rules{"x": {Required("a"), PositiveInt("b")}}
	assert.Equal(t, "a", r.Validate(map[string]string{})["x"])
	assert.Equal(t, "b", r.Validate(map[string]string{"x": "-1"})["x"])
	assert.Empty(t, r.Validate(map[string]string{"x": "2"}))
}

func TestErrorsString(t *testing.T) {
	e := Errors{"b": "two", "a": "one"}
	assert.Equal(t, "a: one; b: two", e.Error())
	assert.Nil(t, Errors{}.Err())
}

func TestLotFormLot(t *testing.T) {
	lot, err := LotForm{PresentationID: "4", Code: " L-7 ", PesoHumedoKg: "12,5", PesoSecoKg: "11"}.Lot()
	require.NoError(t, err)
	assert.Equal(t, int64(4), lot.PresentationID)
	assert.Equal(t, "L-7", lot.Code)
	assert.Equal(t, "12.5", lot.PesoHumedoKg.String())
	assert.Equal(t, "11", lot.PesoSecoKg.String())

	_, err = LotForm{PresentationID: "4", Code: "L-7", PesoHumedoKg: "1", PesoSecoKg: "2"}.Lot()
	var fe Errors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, msgDryOverWet, fe["peso_seco_kg"])
}

func TestDecimalScaleRules(t *testing.T) {
	f := validOrder()
	f.Lines[0].UnitPrice = "15,555"
	f.Lines[1].UnitPrice = "8.000"
	errs := f.Validate()
	assert.Equal(t, msgPriceScale, errs["items[0].precio_unitario"])
	assert.Len(t, errs, 1)

	p := PaymentForm{VentaID: "4", Amount: "10.00001", Date: "2026-10-19", Method: "efectivo"}
	assert.Equal(t, msgAmountScale, p.Validate()["monto"])
	p.Amount = "59.996"
	assert.Empty(t, p.Validate())
}
