package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"github.com/rcarvalho-pb/payment_gateway-go/internal/apperr"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Code        apperr.Code `json:"code"`
	Description string      `json:"description"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw writes an already encoded JSON body.
func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), errorEnvelope{Error: errorBody{
		Code:        apperr.CodeOf(err),
		Description: apperr.Description(err),
	}})
}

// decodeJSON reads a JSON object body. Numbers decode as json.Number so
// handlers can tell integers from fractions. An empty body decodes as {}.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.BadRequest("Invalid JSON body")
	}
	return nil
}

// integer reports v as an int64 when it is an integral JSON number.
func integer(v any) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

// queryInt reads a non-negative integer query parameter. Missing or
// malformed values are 0.
func queryInt(r *http.Request, name string) int {
	s := strings.TrimLeft(strings.TrimSpace(r.URL.Query().Get(name)), "0")
	n, err := cast.ToIntE(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
