// Package identifier produces the human-presentable identifiers a credential
// carries: the institution-scoped certificate number and the globally unique
// verification code.
package identifier

import (
	"context"
	"crypto/rand"
	"fmt"

	dErrors "credence/pkg/domain-errors"
)

// Alphabet is the 32-symbol verification code alphabet. Visually ambiguous
// characters (0/O, 1/I) are excluded because codes are read off printed
// certificates and typed by hand.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the verification code length. Keyspace is 32^9 ≈ 3.5e13,
// so random collisions are overwhelmingly unlikely but still checked.
const CodeLength = 9

// maxCodeAttempts bounds the uniqueness retry loop. Exhausting it means the
// store is almost certainly misbehaving, and looping forever would hide that.
const maxCodeAttempts = 8

// CodeChecker answers global uniqueness queries for candidate codes.
type CodeChecker interface {
	VerificationCodeExists(ctx context.Context, code string) (bool, error)
}

// SequenceAllocator hands out the next per-(institution, year) certificate
// sequence number atomically. Implementations must never derive the value
// from a count query; concurrent issuance would mint duplicates.
type SequenceAllocator interface {
	NextSequence(ctx context.Context, institutionCode string, year int) (int, error)
}

// Generator assigns certificate numbers and verification codes.
type Generator struct {
	codes     CodeChecker
	sequences SequenceAllocator
}

func New(codes CodeChecker, sequences SequenceAllocator) *Generator {
	return &Generator{codes: codes, sequences: sequences}
}

// CertificateNumber allocates the next sequence for the institution and
// graduation year and renders it as {code}-{year}-{sequence:05d}.
func (g *Generator) CertificateNumber(ctx context.Context, institutionCode string, year int) (string, error) {
	seq, err := g.sequences.NextSequence(ctx, institutionCode, year)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "allocate certificate sequence")
	}
	return FormatCertificateNumber(institutionCode, year, seq), nil
}

// FormatCertificateNumber renders a certificate number from its parts.
func FormatCertificateNumber(institutionCode string, year, sequence int) string {
	return fmt.Sprintf("%s-%d-%05d", institutionCode, year, sequence)
}

// VerificationCode draws random candidates until one is globally unique,
// bounded by maxCodeAttempts. Exhaustion surfaces as CodeExhausted, distinct
// from validation errors, so callers know a retry may succeed.
func (g *Generator) VerificationCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate, err := randomCode()
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "draw verification code")
		}
		exists, err := g.codes.VerificationCodeExists(ctx, candidate)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "check verification code uniqueness")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", dErrors.New(dErrors.CodeExhausted, "verification code uniqueness retries exhausted")
}

func randomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, CodeLength)
	for i, b := range buf {
		// 32 symbols divide 256 evenly, so masking introduces no bias.
		out[i] = Alphabet[int(b)&31]
	}
	return string(out), nil
}

// ValidCode reports whether a string is a well-formed verification code.
// Used to reject garbage before a store round-trip.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !alphabetMember(code[i]) {
			return false
		}
	}
	return true
}

func alphabetMember(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
