package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"attendance-control-plane/internal/token/domain"
)

// ErrMalformedPayload is returned when a QR payload matches none of the
// accepted forms.
var ErrMalformedPayload = errors.New("malformed qr payload")

// QRPayload is the normalized content of a presented QR code.
type QRPayload struct {
	SessionID       string `json:"s"`
	Signature       string `json:"t"`
	Nonce           string `json:"n"`
	IssuedAtMillis  int64  `json:"ts"`
	ExpiresAtMillis int64  `json:"e"`
}

// EncodeQR renders the canonical compact-JSON QR payload for a token.
func EncodeQR(t *domain.RotatingToken) (string, error) {
	p := QRPayload{
		SessionID:       t.SessionID,
		Signature:       t.Signature,
		Nonce:           t.Nonce,
		IssuedAtMillis:  t.IssuedAt.UnixMilli(),
		ExpiresAtMillis: t.ExpiresAt.UnixMilli(),
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseQR normalizes a scanned QR payload. The canonical form is compact JSON
// {s,t,n,ts,e}; legacy URL-query (s=..&t=..) and pipe-delimited (s|t|n|ts|e)
// forms are accepted and normalized before they reach the core.
func ParseQR(raw string) (*QRPayload, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return nil, ErrMalformedPayload
	case strings.HasPrefix(raw, "{"):
		return parseJSONForm(raw)
	case strings.Contains(raw, "="):
		return parseQueryForm(raw)
	case strings.Contains(raw, "|"):
		return parsePipeForm(raw)
	default:
		return nil, ErrMalformedPayload
	}
}

func parseJSONForm(raw string) (*QRPayload, error) {
	var p QRPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return validatePayload(&p)
}

func parseQueryForm(raw string) (*QRPayload, error) {
	// Accept both bare query strings and full URLs carrying one.
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	ts, _ := strconv.ParseInt(values.Get("ts"), 10, 64)
	e, _ := strconv.ParseInt(values.Get("e"), 10, 64)
	p := QRPayload{
		SessionID:       values.Get("s"),
		Signature:       values.Get("t"),
		Nonce:           values.Get("n"),
		IssuedAtMillis:  ts,
		ExpiresAtMillis: e,
	}
	return validatePayload(&p)
}

func parsePipeForm(raw string) (*QRPayload, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 5 {
		return nil, ErrMalformedPayload
	}
	ts, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	e, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	p := QRPayload{
		SessionID:       parts[0],
		Signature:       parts[1],
		Nonce:           parts[2],
		IssuedAtMillis:  ts,
		ExpiresAtMillis: e,
	}
	return validatePayload(&p)
}

func validatePayload(p *QRPayload) (*QRPayload, error) {
	if p.SessionID == "" || p.Signature == "" || p.Nonce == "" {
		return nil, ErrMalformedPayload
	}
	return p, nil
}
