package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a literal flagged by libinjection.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if an injection pattern was detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // The literal that was checked
}

// CheckLiteralForInjection uses libinjection to detect injection patterns in
// a string literal lifted out of generated SQL.
//
// Returns nil if the literal is clean.
//
// Example:
//
//	CheckLiteralForInjection("Acme Corp")              // nil
//	CheckLiteralForInjection("x' OR '1'='1")           // IsSQLi == true
func CheckLiteralForInjection(literal string) *InjectionCheckResult {
	if literal == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(literal)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Literal:     literal,
	}
}
