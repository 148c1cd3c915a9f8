package subscriptions

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadSignature = errors.New("invalid webhook signature")
)

const (
	// DefaultSignatureTolerance: margen contra replay de payloads firmados.
	DefaultSignatureTolerance = 5 * time.Minute
)

// VerifySignature valida el header de firma del procesador contra el payload
// crudo. Formato del header: "t=<unix>,v1=<hex hmac-sha256>" (puede traer
// varios v1 durante rotación de secreto). El HMAC se calcula sobre
// "<t>.<payload>" con el signing secret compartido.
//
// Cualquier problema (header ausente/malformado, timestamp fuera de
// tolerancia, ningún v1 que matchee) responde ErrBadSignature: el caller
// rechaza sin tocar estado.
func VerifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) error {
	if secret == "" {
		return ErrBadSignature
	}
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrBadSignature
	}
	if tolerance <= 0 {
		tolerance = DefaultSignatureTolerance
	}

	var ts int64
	var sigs []string

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrBadSignature
			}
			ts = parsed
		case "v1":
			sigs = append(sigs, v)
		}
	}

	if ts == 0 || len(sigs) == 0 {
		return ErrBadSignature
	}

	sent := time.Unix(ts, 0)
	diff := now.Sub(sent)
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, s := range sigs {
		got, err := hex.DecodeString(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return ErrBadSignature
}

// SignPayload arma un header de firma válido. Lo usa el emisor (y los tests).
func SignPayload(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}
