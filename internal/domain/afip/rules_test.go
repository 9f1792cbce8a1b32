package afip_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// mediodía en Buenos Aires para que el "hoy" no dependa del huso del host
func arNoon(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 12, 0, 0, 0, afip.Location())
}

// ── Fechas ───────────────────────────────────────────────────────────────────

func TestNormalizeDate(t *testing.T) {
	now := arNoon(2024, 6, 10)

	cases := map[string]string{
		"2024-05-01":           "20240501",
		"2024/05/01":           "20240501",
		"20240501":             "20240501",
		"2024-05-01T23:59:00Z": "20240501",
		"":                     "20240610",
		"2031-01-01":           "20240610",
	}
	for in, want := range cases {
		got, err := afip.NormalizeDate(in, now)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeDate_HoyEnArgentina(t *testing.T) {
	// 01:30 UTC del 11/06 sigue siendo 10/06 en Argentina (UTC-3)
	now := time.Date(2024, 6, 11, 1, 30, 0, 0, time.UTC)
	got, err := afip.NormalizeDate("2024-06-11", now)
	require.NoError(t, err)
	assert.Equal(t, "20240610", got)
}

func TestNormalizeDate_Invalida(t *testing.T) {
	_, err := afip.NormalizeDate("01/05", arNoon(2024, 6, 10))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = afip.NormalizeDate("2024-02-30", arNoon(2024, 6, 10))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFormatISODate(t *testing.T) {
	assert.Equal(t, "2024-05-31", afip.FormatISODate("20240531"))
	assert.Equal(t, "2024-05-31", afip.FormatISODate("2024-05-31"))
	assert.Equal(t, "", afip.FormatISODate(""))
}

// ── Importes ─────────────────────────────────────────────────────────────────

func TestReconcileTotal(t *testing.T) {
	t.Run("total en cero se calcula", func(t *testing.T) {
		r, err := afip.ReconcileTotal(entity.InvoiceData{Net: d("100"), VAT: d("21")})
		require.NoError(t, err)
		assert.Equal(t, "121.00", r.Total.StringFixed(2))
		assert.False(t, r.Corrected)
	})
	t.Run("dentro de tolerancia se respeta", func(t *testing.T) {
		r, err := afip.ReconcileTotal(entity.InvoiceData{Net: d("100"), VAT: d("21"), Total: d("121.01")})
		require.NoError(t, err)
		assert.Equal(t, "121.01", r.Total.StringFixed(2))
		assert.False(t, r.Corrected)
	})
	t.Run("desvío chico se corrige sin anomalía", func(t *testing.T) {
		r, err := afip.ReconcileTotal(entity.InvoiceData{Net: d("100"), VAT: d("21"), Total: d("121.05")})
		require.NoError(t, err)
		assert.Equal(t, "121.00", r.Total.StringFixed(2))
		assert.True(t, r.Corrected)
		assert.False(t, r.Anomaly)
	})
	t.Run("desvío mayor a 0.10 es anomalía", func(t *testing.T) {
		r, err := afip.ReconcileTotal(entity.InvoiceData{Net: d("100"), VAT: d("21"), Total: d("121.50")})
		require.NoError(t, err)
		assert.Equal(t, "121.00", r.Total.StringFixed(2))
		assert.True(t, r.Corrected)
		assert.True(t, r.Anomaly)
		assert.Equal(t, "0.5", r.Delta.String())
	})
	t.Run("desvío mayor a 1.00 se rechaza", func(t *testing.T) {
		_, err := afip.ReconcileTotal(entity.InvoiceData{Net: d("100"), VAT: d("21"), Total: d("130")})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
	t.Run("incluye no gravado, exento y tributos", func(t *testing.T) {
		r, err := afip.ReconcileTotal(entity.InvoiceData{
			Net: d("100"), VAT: d("21"), NonTaxed: d("5"), Exempt: d("4"), OtherTaxes: d("1.5"), Total: d("131.50"),
		})
		require.NoError(t, err)
		assert.False(t, r.Corrected)
	})
}

func TestAlicuotaIDForRate(t *testing.T) {
	cases := map[string]int{"21": 5, "27": 6, "10.5": 4, "5": 8, "2.5": 9, "0": 3, "19": 5, "10.55": 5}
	for rate, want := range cases {
		assert.Equal(t, want, afip.AlicuotaIDForRate(d(rate)), rate)
	}
}

// ── Receptor ─────────────────────────────────────────────────────────────────

func TestResolveReceiver_ClaseA(t *testing.T) {
	r, err := afip.ResolveReceiver(entity.InvoiceData{DocumentType: 1, ReceiverDocNumber: "30-71234567-1"}, false)
	require.NoError(t, err)
	assert.Equal(t, 80, r.DocType)
	assert.Equal(t, int64(30712345671), r.DocNumber)
	assert.Equal(t, 1, r.VATCondition)

	_, err = afip.ResolveReceiver(entity.InvoiceData{DocumentType: 3, ReceiverDocNumber: "12345678"}, false)
	assert.ErrorIs(t, err, domain.ErrValidation)

	r, err = afip.ResolveReceiver(entity.InvoiceData{DocumentType: 3, ReceiverDocNumber: "12345678"}, true)
	require.NoError(t, err)
	assert.True(t, r.Fallback)
	assert.Equal(t, 99, r.DocType)
	assert.Equal(t, int64(0), r.DocNumber)
	assert.Equal(t, 5, r.VATCondition)
}

func TestResolveReceiver_OtrosTipos(t *testing.T) {
	r, err := afip.ResolveReceiver(entity.InvoiceData{DocumentType: 6}, false)
	require.NoError(t, err)
	assert.Equal(t, afip.Receiver{DocType: 99, VATCondition: 5}, r)

	r, err = afip.ResolveReceiver(entity.InvoiceData{DocumentType: 6, ReceiverDocNumber: "20.278.280"}, false)
	require.NoError(t, err)
	assert.Equal(t, 96, r.DocType)
	assert.Equal(t, int64(20278280), r.DocNumber)

	r, err = afip.ResolveReceiver(entity.InvoiceData{DocumentType: 6, ReceiverDocNumber: "20-27828064-1", ReceiverVATCondition: 6}, false)
	require.NoError(t, err)
	assert.Equal(t, 80, r.DocType)
	assert.Equal(t, 6, r.VATCondition)

	r, err = afip.ResolveReceiver(entity.InvoiceData{DocumentType: 11, ReceiverDocNumber: "00000000000"}, false)
	require.NoError(t, err)
	assert.Equal(t, 99, r.DocType)
}

// ── Armado del request ───────────────────────────────────────────────────────

func TestBuildRequest_FacturaB(t *testing.T) {
	data := entity.InvoiceData{DocumentType: 6, PointOfSale: 1, Net: d("100"), VAT: d("21"), VATRate: d("21")}
	req, err := afip.BuildRequest(data, afip.BuildParams{
		Number: 8, Date: "20240501", Receiver: afip.Receiver{DocType: 99, VATCondition: 5}, Total: d("121"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(8), req.Number)
	assert.Equal(t, 1, req.Concept)
	assert.Equal(t, "PES", req.Currency)
	assert.True(t, req.CurrencyRate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "121.00", req.Total.StringFixed(2))
	require.Len(t, req.VATLines, 1)
	assert.Equal(t, 5, req.VATLines[0].AlicuotaID)
	assert.Equal(t, "100.00", req.VATLines[0].Base.StringFixed(2))
	assert.Equal(t, "21.00", req.VATLines[0].Amount.StringFixed(2))
	assert.Empty(t, req.Associated)
	assert.Empty(t, req.ServiceFrom)
}

func TestBuildRequest_SinNetoNoLlevaIVA(t *testing.T) {
	data := entity.InvoiceData{DocumentType: 11, PointOfSale: 2, Exempt: d("50")}
	req, err := afip.BuildRequest(data, afip.BuildParams{Number: 1, Date: "20240501", Total: d("50")})
	require.NoError(t, err)
	assert.Nil(t, req.VATLines)
}

func TestBuildRequest_InfiereAlicuota(t *testing.T) {
	data := entity.InvoiceData{DocumentType: 6, PointOfSale: 1, Net: d("200"), VAT: d("21")}
	req, err := afip.BuildRequest(data, afip.BuildParams{Number: 1, Date: "20240501", Total: d("221")})
	require.NoError(t, err)
	require.Len(t, req.VATLines, 1)
	assert.Equal(t, 4, req.VATLines[0].AlicuotaID, "21/200 = 10.5%")
}

func TestBuildRequest_AsociadosSoloEnNotas(t *testing.T) {
	assoc := []entity.AssociatedDocument{{Type: 6, PointOfSale: 1, Number: 7, CUIT: "20-27828064-1", Date: "2024-04-30"}}

	req, err := afip.BuildRequest(
		entity.InvoiceData{DocumentType: 8, PointOfSale: 1, Net: d("10"), VAT: d("2.1"), VATRate: d("21"), Associated: assoc},
		afip.BuildParams{Number: 3, Date: "20240501", Total: d("12.1")},
	)
	require.NoError(t, err)
	require.Len(t, req.Associated, 1)
	assert.Equal(t, "20278280641", req.Associated[0].CUIT)
	assert.Equal(t, "20240430", req.Associated[0].Date)

	req, err = afip.BuildRequest(
		entity.InvoiceData{DocumentType: 6, PointOfSale: 1, Net: d("10"), VAT: d("2.1"), VATRate: d("21"), Associated: assoc},
		afip.BuildParams{Number: 3, Date: "20240501", Total: d("12.1")},
	)
	require.NoError(t, err)
	assert.Empty(t, req.Associated)
}

func TestBuildRequest_ServiciosYMoneda(t *testing.T) {
	data := entity.InvoiceData{
		DocumentType: 6, PointOfSale: 1, Concept: 2,
		Net: d("100"), VAT: d("21"), VATRate: d("21"),
		Currency: "dol", ServiceTo: "2024-05-31",
	}
	req, err := afip.BuildRequest(data, afip.BuildParams{Number: 1, Date: "20240501", Total: d("121"), CurrencyRate: d("875.5")})
	require.NoError(t, err)
	assert.Equal(t, "DOL", req.Currency)
	assert.Equal(t, "875.5", req.CurrencyRate.String())
	assert.Equal(t, "20240501", req.ServiceFrom)
	assert.Equal(t, "20240531", req.ServiceTo)
	assert.Equal(t, "20240501", req.PaymentDue)
}

func TestBuildRequest_Validaciones(t *testing.T) {
	_, err := afip.BuildRequest(entity.InvoiceData{PointOfSale: 1}, afip.BuildParams{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = afip.BuildRequest(entity.InvoiceData{DocumentType: 6}, afip.BuildParams{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = afip.BuildRequest(entity.InvoiceData{DocumentType: 6, PointOfSale: 1, Net: d("-1")}, afip.BuildParams{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// ── Interpretación de la respuesta ───────────────────────────────────────────

func TestInterpretCAE(t *testing.T) {
	req := entity.InvoiceRequest{DocumentType: 6, PointOfSale: 1, Number: 9, Date: "20240501", Total: d("121")}

	t.Run("con CAE", func(t *testing.T) {
		res, err := afip.InterpretCAE(afip.CAEResponse{Details: []afip.CAEDetail{{
			Resultado: "A", CAE: "74123456789012", CAEFchVto: "20240511", CbteDesde: 9,
		}}}, req)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "74123456789012", res.AuthorizationCode)
		assert.Equal(t, "2024-05-11", res.ExpiryDate)
		assert.Equal(t, int64(9), res.Number)
		assert.NotNil(t, res.Observations)
	})

	t.Run("rechazado con observaciones", func(t *testing.T) {
		res, err := afip.InterpretCAE(afip.CAEResponse{Resultado: "R", Details: []afip.CAEDetail{{
			Resultado:    "R",
			Observations: []entity.CodeMessage{{Code: 10015, Msg: "DocTipo invalido"}},
		}}}, req)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Empty(t, res.AuthorizationCode)
		assert.Equal(t, "R", res.RemoteStatus)
		assert.Equal(t, []string{"10015: DocTipo invalido"}, res.Observations)
	})

	t.Run("aprobado sin CAE", func(t *testing.T) {
		res, err := afip.InterpretCAE(afip.CAEResponse{Details: []afip.CAEDetail{{Resultado: "A"}}}, req)
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Empty(t, res.AuthorizationCode)
	})

	t.Run("errores de nivel superior", func(t *testing.T) {
		_, err := afip.InterpretCAE(afip.CAEResponse{Errors: []entity.CodeMessage{{Code: 600, Msg: "No autorizado"}}}, req)
		var aerr *domain.AuthorizationError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, []string{"600: No autorizado"}, aerr.Errors)
	})

	t.Run("sin detalle", func(t *testing.T) {
		_, err := afip.InterpretCAE(afip.CAEResponse{}, req)
		assert.ErrorIs(t, err, domain.ErrRemoteService)
	})
}

func TestInterpretLastAuthorized(t *testing.T) {
	n, err := afip.InterpretLastAuthorized(afip.LastAuthorizedResponse{Number: 41}, "20278280641")
	require.NoError(t, err)
	assert.Equal(t, int64(41), n)

	n, err = afip.InterpretLastAuthorized(afip.LastAuthorizedResponse{
		Errors: []entity.CodeMessage{{Code: 1502, Msg: "No existen comprobantes"}},
	}, "20278280641")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = afip.InterpretLastAuthorized(afip.LastAuthorizedResponse{
		Errors: []entity.CodeMessage{{Code: 601, Msg: "CUIT representada no incluida"}},
	}, "20278280641")
	var rerr *domain.RemoteServiceError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Error(), "20278280641")

	_, err = afip.InterpretLastAuthorized(afip.LastAuthorizedResponse{
		Errors: []entity.CodeMessage{{Code: 10000, Msg: "Error interno"}},
	}, "20278280641")
	assert.ErrorIs(t, err, domain.ErrRemoteService)
}

func TestInterpretCurrency(t *testing.T) {
	rate, err := afip.InterpretCurrency(afip.CurrencyResponse{Currency: "DOL", Rate: "875.5", Date: "20240430"})
	require.NoError(t, err)
	assert.True(t, rate.Rate.Equal(d("875.5")))
	assert.Equal(t, "2024-04-30", rate.AsOf)

	_, err = afip.InterpretCurrency(afip.CurrencyResponse{Rate: "n/a"})
	assert.ErrorIs(t, err, domain.ErrRemoteService)

	_, err = afip.InterpretCurrency(afip.CurrencyResponse{Errors: []entity.CodeMessage{{Code: 600, Msg: "x"}}})
	assert.ErrorIs(t, err, domain.ErrRemoteService)
}

func TestInterpretParams(t *testing.T) {
	items, err := afip.InterpretParams("FEParamGetTiposIva", afip.ParamResponse{Items: []entity.ParamItem{
		{ID: "5", Description: "21%", ValidFrom: "20090220", ValidTo: "NULL"},
	}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2009-02-20", items[0].ValidFrom)
	assert.Empty(t, items[0].ValidTo)

	items, err = afip.InterpretParams("FEParamGetTiposIva", afip.ParamResponse{})
	require.NoError(t, err)
	assert.NotNil(t, items)

	_, err = afip.InterpretParams("FEParamGetTiposIva", afip.ParamResponse{Errors: []entity.CodeMessage{{Code: 600, Msg: "x"}}})
	assert.ErrorIs(t, err, domain.ErrRemoteService)
}
