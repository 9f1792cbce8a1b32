// Package afip contiene las reglas puras de armado e interpretación de comprobantes WSFE.
// No hace I/O: la capa de infraestructura hace las llamadas SOAP y la de aplicación orquesta.
package afip

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/jhoicas/afip-bridge/internal/domain/entity"
)

// Normalize convierte errores/observaciones/eventos en una lista "{code}: {message}".
// AFIP manda un objeto suelto cuando hay uno solo y una lista cuando hay varios;
// acá se aceptan ambas formas y los contenedores Err/Obs/Evt. Nunca entra en pánico:
// una forma desconocida se vuelca como JSON (o %v si no es serializable).
func Normalize(v any) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			out = []string{fmt.Sprintf("%v", v)}
		}
	}()
	return appendNormalized(nil, v)
}

func appendNormalized(out []string, v any) []string {
	switch x := v.(type) {
	case nil:
		return out
	case entity.CodeMessage:
		return append(out, formatCodeMessage(strconv.Itoa(x.Code), x.Msg))
	case *entity.CodeMessage:
		if x == nil {
			return out
		}
		return append(out, formatCodeMessage(strconv.Itoa(x.Code), x.Msg))
	case []entity.CodeMessage:
		for _, cm := range x {
			out = appendNormalized(out, cm)
		}
		return out
	case []*entity.CodeMessage:
		for _, cm := range x {
			out = appendNormalized(out, cm)
		}
		return out
	case []any:
		for _, item := range x {
			out = appendNormalized(out, item)
		}
		return out
	case []map[string]any:
		for _, item := range x {
			out = appendNormalized(out, item)
		}
		return out
	case map[string]any:
		return appendMap(out, x)
	case string:
		if s := strings.TrimSpace(x); s != "" {
			return append(out, s)
		}
		return out
	case []string:
		for _, s := range x {
			out = appendNormalized(out, s)
		}
		return out
	case error:
		return append(out, x.Error())
	case fmt.Stringer:
		return append(out, x.String())
	default:
		return append(out, dump(v))
	}
}

// appendMap reconoce {Code, Msg} y los contenedores {Err: ...}, {Obs: ...}, {Evt: ...}.
func appendMap(out []string, m map[string]any) []string {
	var code, msg any
	var hasCode, hasMsg bool
	for k, val := range m {
		switch strings.ToLower(k) {
		case "code":
			code, hasCode = val, true
		case "msg", "message":
			msg, hasMsg = val, true
		}
	}
	if hasCode || hasMsg {
		return append(out, formatCodeMessage(scalar(code), scalar(msg)))
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	found := false
	for _, k := range keys {
		switch strings.ToLower(k) {
		case "err", "obs", "evt", "errors", "observaciones", "events":
			out = appendNormalized(out, m[k])
			found = true
		}
	}
	if found {
		return out
	}
	return append(out, dump(m))
}

func formatCodeMessage(code, msg string) string {
	switch {
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return code + ": " + msg
	}
}

// scalar renderiza códigos numéricos de JSON (float64) sin decimales.
func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func dump(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
