package basket

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
)

// ErrUnparseableReference is returned when a cart item identifier matches none
// of the accepted formats.
var ErrUnparseableReference = errors.New("unparseable cart reference")

// compositePrefix marks composite cart tokens of the form
// cart_<productId>_<variantId>_<timestamp>_<random>. Only the product segment
// is meaningful here.
const compositePrefix = "cart_"

// canonicalUUID matches the 8-4-4-4-12 hex grouping, case-insensitively.
// uuid.Parse is deliberately not used: it also admits braced and urn-prefixed
// encodings, which are not valid catalog references.
var canonicalUUID = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// RefKind discriminates the two catalog identifier schemes.
type RefKind int

const (
	// RefLegacyID is a pre-migration positive integer product identifier.
	RefLegacyID RefKind = iota + 1
	// RefUUID is a current-scheme UUID product identifier.
	RefUUID
)

// CartReference is a decoded cart item identifier: exactly one of the two
// identifier schemes, never both.
type CartReference struct {
	Kind     RefKind
	LegacyID int64
	UUID     string
}

// ParseCartReference decodes a raw cart item identifier into a CartReference.
//
// Accepted forms:
//   - composite token "cart_<product>_...": the product segment is parsed as a
//     positive integer, otherwise taken verbatim as a UUID candidate
//   - bare positive integer: legacy identifier
//   - bare canonical UUID: current identifier
//
// Anything else fails with ErrUnparseableReference.
func ParseCartReference(raw string) (CartReference, error) {
	if strings.HasPrefix(raw, compositePrefix) {
		segment := strings.Split(raw, "_")[1]
		if n, err := strconv.ParseInt(segment, 10, 64); err == nil && n > 0 {
			return CartReference{Kind: RefLegacyID, LegacyID: n}, nil
		}
		// Not numeric: trust the segment as a UUID candidate. A bogus value
		// surfaces as a catalog miss, not a parse failure.
		return CartReference{Kind: RefUUID, UUID: strings.ToLower(segment)}, nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
		return CartReference{Kind: RefLegacyID, LegacyID: n}, nil
	}

	if canonicalUUID.MatchString(raw) {
		return CartReference{Kind: RefUUID, UUID: strings.ToLower(raw)}, nil
	}

	return CartReference{}, errors.Wrapf(ErrUnparseableReference, "parse %q", raw)
}
