package afip

import (
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/afip-bridge/internal/domain"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

const dateLayout = "20060102"

var (
	// Tolerancia dentro de la cual el total declarado se respeta.
	totalTolerance = decimal.RequireFromString("0.01")
	// Por encima de este desvío la corrección se informa como anomalía.
	anomalyThreshold = decimal.RequireFromString("0.10")
	// Por encima de este desvío el comprobante se rechaza localmente.
	maxCorrection = decimal.RequireFromString("1.00")

	hundred = decimal.NewFromInt(100)
	ten     = decimal.NewFromInt(10)
)

var loadLocation = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		return time.FixedZone("ART", -3*60*60)
	}
	return loc
})

// Location devuelve la zona horaria oficial de AFIP (America/Argentina/Buenos_Aires).
func Location() *time.Location {
	return loadLocation()
}

// NormalizeDate quita separadores y devuelve YYYYMMDD. Una fecha futura se lleva a hoy
// (en hora argentina). Vacía equivale a hoy.
func NormalizeDate(raw string, now time.Time) (string, error) {
	today := now.In(Location()).Format(dateLayout)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return today, nil
	}
	// "2024-05-01T10:00:00Z" o "2024-05-01 10:00:00": solo interesa la fecha.
	if i := strings.IndexAny(raw, "T "); i > 0 {
		raw = raw[:i]
	}
	digits := pkgafip.DigitsOnly(raw)
	if len(digits) != 8 {
		return "", &domain.ValidationError{Field: "fecha", Reason: "formato inválido: " + raw}
	}
	if _, err := time.ParseInLocation(dateLayout, digits, Location()); err != nil {
		return "", &domain.ValidationError{Field: "fecha", Reason: "fecha inexistente: " + raw}
	}
	if digits > today {
		return today, nil
	}
	return digits, nil
}

// FormatISODate convierte YYYYMMDD en YYYY-MM-DD; otros valores se devuelven sin cambios.
func FormatISODate(yyyymmdd string) string {
	s := strings.TrimSpace(yyyymmdd)
	if len(s) != 8 || pkgafip.DigitsOnly(s) != s {
		return s
	}
	return s[:4] + "-" + s[4:6] + "-" + s[6:]
}

// Reconciliation resultado de comparar el total declarado con la suma de componentes.
type Reconciliation struct {
	Total     decimal.Decimal // total a enviar
	Declared  decimal.Decimal
	Sum       decimal.Decimal
	Delta     decimal.Decimal // |declarado - suma|
	Corrected bool
	Anomaly   bool
}

// ReconcileTotal aplica la regla de consistencia de importes:
// |Δ| <= 0.01 se respeta el declarado; hasta 1.00 se corrige a la suma exacta
// (anomalía si supera 0.10); por encima se rechaza. Un total en cero se calcula.
func ReconcileTotal(d entity.InvoiceData) (Reconciliation, error) {
	sum := round2(d.Net).
		Add(round2(d.VAT)).
		Add(round2(d.NonTaxed)).
		Add(round2(d.Exempt)).
		Add(round2(d.OtherTaxes))
	declared := round2(d.Total)
	r := Reconciliation{Declared: declared, Sum: sum}

	if declared.IsZero() {
		r.Total = sum
		return r, nil
	}
	r.Delta = declared.Sub(sum).Abs()
	switch {
	case r.Delta.LessThanOrEqual(totalTolerance):
		r.Total = declared
	case r.Delta.LessThanOrEqual(maxCorrection):
		r.Total = sum
		r.Corrected = true
		r.Anomaly = r.Delta.GreaterThan(anomalyThreshold)
	default:
		return r, &domain.ValidationError{
			Field:  "total",
			Reason: "el total " + declared.StringFixed(2) + " no coincide con la suma de componentes " + sum.StringFixed(2),
		}
	}
	return r, nil
}

// AlicuotaIDForRate mapea un porcentaje de IVA al Id de AFIP (21→5, 27→6, 10.5→4, 5→8, 2.5→9, 0→3).
// Porcentajes no documentados devuelven 5 (21%).
func AlicuotaIDForRate(rate decimal.Decimal) int {
	tenths := rate.Mul(ten)
	if !tenths.Equal(tenths.Truncate(0)) {
		return pkgafip.AlicuotaIVA21
	}
	return pkgafip.AlicuotaID(tenths.IntPart())
}

// Receiver identificación fiscal del receptor ya resuelta.
type Receiver struct {
	DocType      int
	DocNumber    int64
	VATCondition int
	// Fallback indica que un comprobante "A" se degradó a consumidor final.
	Fallback bool
}

// ResolveReceiver decide DocTipo, DocNro y condición frente al IVA del receptor.
//
// Tipos "A" (1, 2, 3) exigen un CUIT de 11 dígitos y usan condición 1. Sin CUIT válido
// el resultado es un ValidationError salvo que allowFallback esté activo, en cuyo caso
// se emite a consumidor final (DocTipo 99, DocNro 0, condición 5).
// El resto de los tipos usa condición 5 salvo que el llamador indique otra.
func ResolveReceiver(d entity.InvoiceData, allowFallback bool) (Receiver, error) {
	digits := pkgafip.DigitsOnly(d.ReceiverDocNumber)

	if pkgafip.IsClassA(d.DocumentType) {
		if len(digits) == 11 {
			n, _ := strconv.ParseInt(digits, 10, 64)
			return Receiver{
				DocType:      pkgafip.DocTipoCUIT,
				DocNumber:    n,
				VATCondition: pkgafip.CondIVAResponsableInscripto,
			}, nil
		}
		if allowFallback {
			return Receiver{
				DocType:      pkgafip.DocTipoSinIdentificar,
				VATCondition: pkgafip.CondIVAConsumidorFinal,
				Fallback:     true,
			}, nil
		}
		return Receiver{}, &domain.ValidationError{
			Field:  "receptor.cuit",
			Reason: "los comprobantes A requieren un CUIT de 11 dígitos (recibido: \"" + d.ReceiverDocNumber + "\")",
		}
	}

	r := Receiver{VATCondition: pkgafip.CondIVAConsumidorFinal, DocType: pkgafip.DocTipoSinIdentificar}
	if d.ReceiverVATCondition > 0 {
		r.VATCondition = d.ReceiverVATCondition
	}
	if strings.Trim(digits, "0") == "" || d.ReceiverDocType == pkgafip.DocTipoSinIdentificar {
		return r, nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return Receiver{}, &domain.ValidationError{Field: "receptor.documento", Reason: "número de documento inválido"}
	}
	switch {
	case d.ReceiverDocType > 0:
		r.DocType = d.ReceiverDocType
	case len(digits) == 11:
		r.DocType = pkgafip.DocTipoCUIT
	case len(digits) >= 7 && len(digits) <= 8:
		r.DocType = pkgafip.DocTipoDNI
	default:
		return r, nil
	}
	r.DocNumber = n
	return r, nil
}

// BuildParams datos ya resueltos que completan el InvoiceData.
type BuildParams struct {
	Number       int64
	Date         string // YYYYMMDD
	Receiver     Receiver
	Total        decimal.Decimal
	CurrencyRate decimal.Decimal // cero = 1
}

// BuildRequest arma el detalle de FECAESolicitar a partir del comprobante y los datos resueltos.
func BuildRequest(d entity.InvoiceData, p BuildParams) (entity.InvoiceRequest, error) {
	if err := validateHeader(d); err != nil {
		return entity.InvoiceRequest{}, err
	}

	concept := d.Concept
	if concept == 0 {
		concept = pkgafip.ConceptoProductos
	}
	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = pkgafip.MonedaPesos
	}
	rate := p.CurrencyRate
	if currency == pkgafip.MonedaPesos || rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}

	req := entity.InvoiceRequest{
		PointOfSale:  d.PointOfSale,
		DocumentType: d.DocumentType,
		Concept:      concept,
		DocType:      p.Receiver.DocType,
		DocNumber:    p.Receiver.DocNumber,
		Number:       p.Number,
		Date:         p.Date,
		Total:        round2(p.Total),
		NonTaxed:     round2(d.NonTaxed),
		Net:          round2(d.Net),
		Exempt:       round2(d.Exempt),
		OtherTaxes:   round2(d.OtherTaxes),
		VAT:          round2(d.VAT),
		Currency:     currency,
		CurrencyRate: rate,
		VATCondition: p.Receiver.VATCondition,
	}

	if concept == pkgafip.ConceptoServicios || concept == pkgafip.ConceptoProductosServicios {
		req.ServiceFrom = dateOr(d.ServiceFrom, p.Date)
		req.ServiceTo = dateOr(d.ServiceTo, p.Date)
		req.PaymentDue = dateOr(d.PaymentDue, p.Date)
	}

	if req.Net.IsPositive() {
		req.VATLines = buildVATLines(d, req.Net, req.VAT)
	}

	if pkgafip.IsNote(d.DocumentType) {
		for _, a := range d.Associated {
			a.CUIT = pkgafip.DigitsOnly(a.CUIT)
			a.Date = pkgafip.DigitsOnly(a.Date)
			req.Associated = append(req.Associated, a)
		}
	}
	return req, nil
}

func validateHeader(d entity.InvoiceData) error {
	if d.DocumentType <= 0 {
		return &domain.ValidationError{Field: "tipo", Reason: "tipo de comprobante requerido"}
	}
	if d.PointOfSale <= 0 || d.PointOfSale > 99999 {
		return &domain.ValidationError{Field: "puntoVenta", Reason: "punto de venta fuera de rango"}
	}
	for field, v := range map[string]decimal.Decimal{
		"neto": d.Net, "iva": d.VAT, "total": d.Total,
		"noGravado": d.NonTaxed, "exento": d.Exempt, "tributos": d.OtherTaxes,
	} {
		if v.IsNegative() {
			return &domain.ValidationError{Field: field, Reason: "importe negativo"}
		}
	}
	return nil
}

// buildVATLines usa los renglones del llamador si los hay; si no, un único renglón con
// base = neto e importe = IVA. Sin porcentaje informado se infiere de IVA/neto.
func buildVATLines(d entity.InvoiceData, net, vat decimal.Decimal) []entity.VATLine {
	if len(d.VATLines) > 0 {
		lines := make([]entity.VATLine, 0, len(d.VATLines))
		for _, l := range d.VATLines {
			id := l.AlicuotaID
			if id == 0 {
				id = AlicuotaIDForRate(l.Rate)
			}
			lines = append(lines, entity.VATLine{
				Rate:       l.Rate,
				AlicuotaID: id,
				Base:       round2(l.Base),
				Amount:     round2(l.Amount),
			})
		}
		return lines
	}

	rate := d.VATRate
	if rate.IsZero() && vat.IsPositive() {
		rate = vat.Div(net).Mul(hundred).Round(1)
	}
	return []entity.VATLine{{
		Rate:       rate,
		AlicuotaID: AlicuotaIDForRate(rate),
		Base:       net,
		Amount:     vat,
	}}
}

func dateOr(raw, def string) string {
	if d := pkgafip.DigitsOnly(raw); len(d) == 8 {
		return d
	}
	return def
}

func round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
