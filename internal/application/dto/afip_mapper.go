package dto

import "github.com/jhoicas/afip-bridge/internal/domain/entity"

// ToInvoiceData convierte el pedido en los datos del comprobante a autorizar.
func (in CAERequest) ToInvoiceData() entity.InvoiceData {
	data := entity.InvoiceData{
		DocumentType:         in.DocumentType,
		PointOfSale:          in.PointOfSale,
		Date:                 in.Date,
		Concept:              in.Concept,
		ReceiverDocType:      in.ReceiverDocType,
		ReceiverDocNumber:    in.ReceiverDocNumber,
		ReceiverVATCondition: in.ReceiverVATCondition,
		Net:                  in.Net,
		VAT:                  in.VAT,
		Total:                in.Total,
		NonTaxed:             in.NonTaxed,
		Exempt:               in.Exempt,
		OtherTaxes:           in.OtherTaxes,
		VATRate:              in.VATRate,
		Currency:             in.Currency,
		CurrencyRate:         in.CurrencyRate,
		ServiceFrom:          in.ServiceFrom,
		ServiceTo:            in.ServiceTo,
		PaymentDue:           in.PaymentDue,
	}
	for _, l := range in.VATLines {
		data.VATLines = append(data.VATLines, entity.VATLine{Rate: l.Rate, AlicuotaID: l.AlicuotaID, Base: l.Base, Amount: l.Amount})
	}
	for _, a := range in.Associated {
		data.Associated = append(data.Associated, entity.AssociatedDocument{
			Type: a.Type, PointOfSale: a.PointOfSale, Number: a.Number, CUIT: a.CUIT, Date: a.Date,
		})
	}
	return data
}

// NewAuthorizationResponse arma la respuesta pública; cae y cae_expiry quedan en null sin CAE.
func NewAuthorizationResponse(res entity.AuthorizationResult) AuthorizationResponse {
	out := AuthorizationResponse{
		Success:      res.Success,
		Status:       res.RemoteStatus,
		Observations: res.Observations,
		DocumentType: res.DocumentType,
		PointOfSale:  res.PointOfSale,
		Number:       res.Number,
		Date:         res.Date,
		Total:        res.Total.Round(2),
	}
	if out.Observations == nil {
		out.Observations = []string{}
	}
	if res.AuthorizationCode != "" {
		cae, expiry := res.AuthorizationCode, res.ExpiryDate
		out.CAE = &cae
		out.CAEExpiry = &expiry
	}
	return out
}

func NewParamItems(items []entity.ParamItem) []ParamItemResponse {
	out := make([]ParamItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ParamItemResponse{ID: it.ID, Description: it.Description, ValidFrom: it.ValidFrom, ValidTo: it.ValidTo})
	}
	return out
}
