package afip

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/afip-bridge/internal/domain"
)

const soapNS = "http://schemas.xmlsoap.org/soap/envelope/"

// Resultado de una llamada, para métricas.
const (
	OutcomeOK    = "ok"
	OutcomeFault = "fault"
	OutcomeError = "error"
)

// Observer recibe la duración y el resultado de cada llamada SOAP.
type Observer interface {
	ObserveCall(service, operation, outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCall(string, string, string, time.Duration) {}

// TransportConfig tiempos de la conexión con AFIP.
type TransportConfig struct {
	ConnectTimeout time.Duration // dial + handshake TLS
	RequestTimeout time.Duration // llamada completa
	Observer       Observer
}

// soapClient transporte SOAP 1.1 compartido por WSAA y WSFE.
type soapClient struct {
	httpClient *http.Client
	observer   Observer
}

func newSOAPClient(cfg TransportConfig) *soapClient {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = 5 * time.Second
	}
	request := cfg.RequestTimeout
	if request <= 0 {
		request = 60 * time.Second
	}
	obs := cfg.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	dialer := &net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: connect,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &soapClient{
		httpClient: &http.Client{Timeout: request, Transport: transport},
		observer:   obs,
	}
}

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soap:Envelope"`
	XmlnsS  string     `xml:"xmlns:soap,attr"`
	Header  soapHeader `xml:"soap:Header"`
	Body    soapBody   `xml:"soap:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soap:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type soapResponseEnvelope struct {
	Body struct {
		Fault *soapFault `xml:"Fault"`
		Inner []byte     `xml:",innerxml"`
	} `xml:"Body"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// FaultError SOAP Fault devuelto por AFIP.
type FaultError struct {
	Code   string
	String string
}

func (f *FaultError) Error() string {
	return fmt.Sprintf("SOAP Fault [%s]: %s", f.Code, f.String)
}

// ── Llamada ───────────────────────────────────────────────────────────────────

// call envía body a url y decodifica el primer elemento del Body en out.
// Un Fault se devuelve como *FaultError; cualquier otra falla como *domain.RemoteServiceError.
func (c *soapClient) call(ctx context.Context, service, operation, url, action string, body, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		outcome := OutcomeOK
		var fault *FaultError
		switch {
		case errors.As(err, &fault):
			outcome = OutcomeFault
		case err != nil:
			outcome = OutcomeError
		}
		c.observer.ObserveCall(service, operation, outcome, time.Since(start))
	}()

	remoteErr := func(format string, args ...interface{}) error {
		return &domain.RemoteServiceError{Service: service, Operation: operation, Err: fmt.Errorf(format, args...)}
	}

	payload, err := xml.Marshal(soapEnvelope{XmlnsS: soapNS, Body: soapBody{Content: body}})
	if err != nil {
		return remoteErr("soap: serializar envelope: %w", err)
	}
	payload = append([]byte(xml.Header), payload...)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return remoteErr("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+action+`"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return remoteErr("soap: timeout o cancelación: %w", ctx.Err())
		}
		return remoteErr("soap: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return remoteErr("soap: leer respuesta: %w", err)
	}

	raw, err = toUTF8(raw)
	if err != nil {
		return remoteErr("soap: %w", err)
	}
	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return remoteErr("soap: respuesta ilegible (HTTP %d): %w", resp.StatusCode, err)
	}
	if f := env.Body.Fault; f != nil {
		return &FaultError{Code: strings.TrimSpace(f.FaultCode), String: strings.TrimSpace(f.FaultString)}
	}
	if resp.StatusCode != http.StatusOK {
		return remoteErr("soap: HTTP %d", resp.StatusCode)
	}
	if len(bytes.TrimSpace(env.Body.Inner)) == 0 {
		return remoteErr("soap: Body vacío")
	}
	if err := xml.Unmarshal(env.Body.Inner, out); err != nil {
		return remoteErr("soap: decodificar %s: %w", operation, err)
	}
	return nil
}

// toUTF8 transcodifica respuestas declaradas en ISO-8859-1 / windows-1252 y reescribe
// la declaración; innerxml conserva los bytes originales, por eso se convierte antes de decodificar.
func toUTF8(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return raw, nil
	}
	end := bytes.Index(trimmed, []byte("?>"))
	if end < 0 {
		return raw, nil
	}
	decl := strings.ToLower(string(trimmed[:end]))
	var enc *charmap.Charmap
	switch {
	case strings.Contains(decl, "iso-8859-1"), strings.Contains(decl, "latin1"):
		enc = charmap.ISO8859_1
	case strings.Contains(decl, "windows-1252"), strings.Contains(decl, "cp1252"):
		enc = charmap.Windows1252
	default:
		return raw, nil
	}
	body, err := enc.NewDecoder().Bytes(trimmed[end+2:])
	if err != nil {
		return nil, fmt.Errorf("transcodificar respuesta: %w", err)
	}
	return append([]byte(`<?xml version="1.0" encoding="UTF-8"?>`), body...), nil
}
