// Package barcode classifies scanned payloads and normalizes retail codes.
//
// Products store their UPC in the canonical form produced by NormalizeUPC, so
// every lookup must go through it.
package barcode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind is the detected or declared type of a scanned payload.
type Kind string

// Payload kinds.
const (
	KindUUID    Kind = "uuid"
	KindUPC     Kind = "upc"
	KindUnknown Kind = "unknown"
	KindAuto    Kind = "auto"
)

// Length limits for UPC/EAN/GTIN payloads after stripping non-digits.
const (
	MinUPCLength = 8
	MaxUPCLength = 14

	canonicalUPCLength = 12
)

// ErrInvalidUPC is returned for payloads that cannot be a UPC.
var ErrInvalidUPC = errors.New("barcode: invalid upc format")

// ErrInvalidKind is returned for declared types that are not recognized.
var ErrInvalidKind = errors.New("barcode: invalid barcode type")

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Classify detects the kind of a scanned payload.
func Classify(payload string) Kind {
	p := strings.TrimSpace(payload)
	if uuidPattern.MatchString(p) {
		return KindUUID
	}
	n := len(digits(p))
	if n >= MinUPCLength && n <= MaxUPCLength {
		return KindUPC
	}
	return KindUnknown
}

// ParseKind parses a declared scan type. Empty and "unknown" are treated as
// auto-detection.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindAuto, KindUnknown:
		return KindAuto, nil
	case KindUUID, "qr":
		return KindUUID, nil
	case KindUPC, "ean", "gtin":
		return KindUPC, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Resolve returns the effective kind for payload given a declared kind.
// A declared UUID or UPC is trusted; auto classifies the payload.
func Resolve(payload string, declared Kind) (Kind, error) {
	if declared == KindUUID || declared == KindUPC {
		return declared, nil
	}
	k := Classify(payload)
	if k == KindUnknown {
		return "", ErrInvalidKind
	}
	return k, nil
}

// IsUUID reports whether s is a canonical 8-4-4-4-12 hex UUID.
func IsUUID(s string) bool {
	return uuidPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeUUID trims and lower-cases a UUID payload.
func NormalizeUUID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// UPC is a normalized retail code.
type UPC struct {
	Code string
	// NonUS is set for 13-digit EAN codes without the US leading zero. They
	// are kept as-is and will only match products stored the same way.
	NonUS bool
}

// Warning returns a human readable note for codes that were kept unchanged
// outside the UPC-A range, or "".
func (u UPC) Warning() string {
	if u.NonUS {
		return fmt.Sprintf("EAN-13 code %s is not a US code and was not converted to UPC-A", u.Code)
	}
	return ""
}

// NormalizeUPC strips non-digits and converts UPC-E/EAN-8, EAN-13 and GTIN-14
// payloads to the 12-digit UPC-A form wherever that is derivable.
func NormalizeUPC(raw string) (UPC, error) {
	d := digits(raw)
	if len(d) < MinUPCLength || len(d) > MaxUPCLength {
		return UPC{}, fmt.Errorf("%w: %d digits", ErrInvalidUPC, len(d))
	}

	switch len(d) {
	case 12:
		return UPC{Code: d}, nil
	case 13:
		if d[0] == '0' {
			return UPC{Code: d[1:]}, nil
		}
		return UPC{Code: d, NonUS: true}, nil
	case 14:
		return canonicalGTIN(d), nil
	default:
		return UPC{Code: leftPad(d, canonicalUPCLength)}, nil
	}
}

// canonicalGTIN strips the packaging indicator zeros of a GTIN-14 and
// canonicalizes what remains.
func canonicalGTIN(d string) UPC {
	trimmed := strings.TrimLeft(d, "0")
	switch {
	case len(trimmed) <= canonicalUPCLength:
		return UPC{Code: leftPad(trimmed, canonicalUPCLength)}
	case len(trimmed) == 13:
		return UPC{Code: trimmed, NonUS: true}
	default:
		return UPC{Code: trimmed}
	}
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

func digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
