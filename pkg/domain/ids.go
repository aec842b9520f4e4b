package domain

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "travelcred/pkg/domain-errors"
)

// MaxIdentityLength bounds caller identities accepted at trust boundaries.
const MaxIdentityLength = 256

// Identity is an opaque caller identity (for example a public address).
// The zero value means "no identity".
type Identity string

func (i Identity) String() string { return string(i) }

func (i Identity) IsZero() bool { return i == "" }

// ParseIdentity constructs an Identity from external input.
// Surrounding whitespace is trimmed; empty, oversized, non-UTF8 and
// control-character inputs are rejected. Identities are otherwise opaque and
// compared byte-for-byte.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity is required")
	}
	if len(s) > MaxIdentityLength {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeBadRequest, "identity must be valid UTF-8")
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) || unicode.Is(unicode.Cf, r) {
			return "", dErrors.New(dErrors.CodeBadRequest, "identity contains invalid characters")
		}
	}
	return Identity(s), nil
}

// PassportID is a sequential passport identifier. Zero means "no passport".
type PassportID uint64

func (id PassportID) String() string { return strconv.FormatUint(uint64(id), 10) }

func (id PassportID) IsZero() bool { return id == 0 }

// VisaID is a sequential visa identifier. Zero is reserved.
type VisaID uint64

func (id VisaID) String() string { return strconv.FormatUint(uint64(id), 10) }

func (id VisaID) IsZero() bool { return id == 0 }

// ParsePassportID parses a decimal passport id. Zero parses successfully and
// is treated as an unknown record by the registry.
func ParsePassportID(s string) (PassportID, error) {
	v, err := parseSequential(s, "passport id")
	return PassportID(v), err
}

// ParseVisaID parses a decimal visa id.
func ParseVisaID(s string) (VisaID, error) {
	v, err := parseSequential(s, "visa id")
	return VisaID(v), err
}

func parseSequential(s, what string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, what+" is required")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid "+what)
	}
	return v, nil
}

// RegistryKind names one of the two credential registries. Officer roles are
// scoped to a registry kind.
type RegistryKind string

const (
	RegistryPassport RegistryKind = "passport"
	RegistryVisa     RegistryKind = "visa"
)

func (k RegistryKind) String() string { return string(k) }

func (k RegistryKind) IsValid() bool {
	return k == RegistryPassport || k == RegistryVisa
}

// ParseRegistryKind accepts "passport" or "visa" (case-insensitive).
func ParseRegistryKind(s string) (RegistryKind, error) {
	k := RegistryKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "registry kind must be passport or visa")
	}
	return k, nil
}
