package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/server/auth"
	"github.com/dmitrijs2005/travelkeeper/internal/server/config"
	"github.com/dmitrijs2005/travelkeeper/internal/validation"
)

// PasswordPolicy describes the strength rules applied at registration.
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireDigit   bool
	RequireSpecial bool
}

// PasswordPolicyFromConfig reads the policy thresholds from cfg.
func PasswordPolicyFromConfig(cfg *config.Config) PasswordPolicy {
	return PasswordPolicy{
		MinLength:      cfg.PasswordMinLength,
		RequireUpper:   cfg.PasswordRequireUpper,
		RequireDigit:   cfg.PasswordRequireDigit,
		RequireSpecial: cfg.PasswordRequireSpecial,
	}
}

// Check returns a *common.ValidationError for the first rule password breaks.
func (p PasswordPolicy) Check(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return common.NewValidationError("password", fmt.Sprintf("Password must contain at least %d characters.", p.MinLength))
	}
	if len(password) > auth.MaxPasswordBytes {
		return common.NewValidationError("password", fmt.Sprintf("Password must not be longer than %d bytes.", auth.MaxPasswordBytes))
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			hasSpecial = true
		}
	}

	switch {
	case p.RequireUpper && !hasUpper:
		return common.NewValidationError("password", "Password must contain at least one uppercase letter.")
	case p.RequireDigit && !hasDigit:
		return common.NewValidationError("password", "Password must contain at least one digit.")
	case p.RequireSpecial && !hasSpecial:
		return common.NewValidationError("password", "Password must contain at least one special character.")
	}
	return nil
}

// EmailPolicy normalises addresses and refuses disposable domains.
type EmailPolicy struct {
	blocked []string
}

// NewEmailPolicy builds a policy blocking domains and all their subdomains.
func NewEmailPolicy(domains []string) *EmailPolicy {
	blocked := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), "@.")
		if d != "" {
			blocked = append(blocked, d)
		}
	}
	return &EmailPolicy{blocked: blocked}
}

// NormalizeEmail trims and lower-cases email and checks its format.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !validation.IsEmail(email) {
		return "", common.NewValidationError("email", "value is not a valid email address")
	}
	return email, nil
}

// Normalize is NormalizeEmail plus the disposable-domain check.
func (p *EmailPolicy) Normalize(email string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}

	domain := email[strings.LastIndexByte(email, '@')+1:]
	for _, b := range p.blocked {
		if domain == b || strings.HasSuffix(domain, "."+b) {
			return "", common.NewValidationError("email", "Temporary mails are not allowed")
		}
	}
	return email, nil
}
