package afip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/afip-bridge/internal/domain"
	domainafip "github.com/jhoicas/afip-bridge/internal/domain/afip"
	"github.com/jhoicas/afip-bridge/internal/domain/entity"
	pkgafip "github.com/jhoicas/afip-bridge/pkg/afip"
)

const (
	wsaaNS         = "http://wsaa.view.sua.dvadac.desein.afip.gov"
	opLoginCms     = "loginCms"
	serviceWSAA    = "wsaa"
	traTimeLayout  = "2006-01-02T15:04:05-07:00"
	defaultTRATTL  = 10 * time.Minute
	traClockOffset = time.Minute
)

// WSAAOptions configuración del cliente de autenticación.
type WSAAOptions struct {
	Transport TransportConfig
	TRATTL    time.Duration
	// URL fija (tests); vacío = endpoint según el modo del tenant.
	URL string
	Now func() time.Time
}

// WSAAClient ejecuta loginCms: arma el TRA, lo firma en CMS y canjea la firma por un TA.
type WSAAClient struct {
	soap   *soapClient
	signer pkgafip.Signer
	ttl    time.Duration
	url    string
	now    func() time.Time
}

// NewWSAAClient construye el cliente WSAA.
func NewWSAAClient(signer pkgafip.Signer, opts WSAAOptions) *WSAAClient {
	ttl := opts.TRATTL
	if ttl <= 0 {
		ttl = defaultTRATTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &WSAAClient{
		soap:   newSOAPClient(opts.Transport),
		signer: signer,
		ttl:    ttl,
		url:    opts.URL,
		now:    now,
	}
}

type loginCmsBody struct {
	XMLName xml.Name `xml:"loginCms"`
	Xmlns   string   `xml:"xmlns,attr"`
	In0     string   `xml:"in0"`
}

type loginCmsResponse struct {
	XMLName xml.Name `xml:"loginCmsResponse"`
	Return  string   `xml:"loginCmsReturn"`
}

// Login obtiene un ticket nuevo para service. No consulta caches.
func (c *WSAAClient) Login(ctx context.Context, service string, tenant *entity.Tenant) (*entity.AuthTicket, error) {
	tra, err := BuildTRA(service, c.now(), c.ttl)
	if err != nil {
		return nil, &domain.AuthenticationError{Service: service, Err: err}
	}
	cms, err := c.signer.Sign(tra, tenant.KeyPair())
	if err != nil {
		return nil, err
	}

	url := c.url
	if url == "" {
		url = pkgafip.WSAAURL(tenant.Mode)
	}
	body := loginCmsBody{Xmlns: wsaaNS, In0: base64.StdEncoding.EncodeToString(cms)}

	var resp loginCmsResponse
	if err := c.soap.call(ctx, serviceWSAA, opLoginCms, url, "", body, &resp); err != nil {
		var fault *FaultError
		if errors.As(err, &fault) {
			return nil, &domain.AuthenticationError{Service: service, FaultCode: fault.Code, FaultString: fault.String}
		}
		return nil, err
	}

	ticket, err := ParseLoginTicketResponse(resp.Return)
	if err != nil {
		return nil, &domain.AuthenticationError{Service: service, Err: err}
	}
	ticket.TenantCUIT = tenant.CUIT
	ticket.Service = service
	return ticket, nil
}

// BuildTRA arma el loginTicketRequest en hora oficial argentina: generación = now - 1 min,
// vencimiento = generación + ttl, uniqueId = segundos Unix.
func BuildTRA(service string, now time.Time, ttl time.Duration) ([]byte, error) {
	if strings.TrimSpace(service) == "" {
		return nil, errors.New("tra: servicio vacío")
	}
	gen := now.In(domainafip.Location()).Add(-traClockOffset).Truncate(time.Second)
	exp := gen.Add(ttl)

	doc := etree.NewDocument()
	root := doc.CreateElement("loginTicketRequest")
	root.CreateAttr("version", "1.0")
	header := root.CreateElement("header")
	header.CreateElement("uniqueId").SetText(strconv.FormatInt(now.Unix(), 10))
	header.CreateElement("generationTime").SetText(gen.Format(traTimeLayout))
	header.CreateElement("expirationTime").SetText(exp.Format(traTimeLayout))
	root.CreateElement("service").SetText(service)

	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("tra: serializar: %w", err)
	}
	canonical, err := canonicalizeXML(raw)
	if err != nil {
		canonical = raw
	}
	return append([]byte(`<?xml version="1.0" encoding="UTF-8"?>`), canonical...), nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// ParseLoginTicketResponse extrae token, sign y tiempos del loginTicketResponse.
func ParseLoginTicketResponse(raw string) (*entity.AuthTicket, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("loginTicketResponse vacío")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return nil, fmt.Errorf("loginTicketResponse ilegible: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("loginTicketResponse sin raíz")
	}

	text := func(path string) string {
		if el := root.FindElement(path); el != nil {
			return strings.TrimSpace(el.Text())
		}
		return ""
	}
	token := text("credentials/token")
	sign := text("credentials/sign")
	if token == "" || sign == "" {
		return nil, errors.New("loginTicketResponse sin token o sign")
	}
	exp, err := parseTicketTime(text("header/expirationTime"))
	if err != nil {
		return nil, fmt.Errorf("expirationTime: %w", err)
	}
	ticket := &entity.AuthTicket{Token: token, Sign: sign, ExpiresAt: exp}
	if gen, err := parseTicketTime(text("header/generationTime")); err == nil {
		ticket.GeneratedAt = gen
	}
	return ticket, nil
}

// parseTicketTime acepta "2024-05-01T21:10:00.123-03:00" y variantes sin milisegundos.
func parseTicketTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("vacío")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000-0700"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, domainafip.Location())
}
