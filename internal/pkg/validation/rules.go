package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation limits
const (
	PasswordMinLength = 6
	ContentMaxLength  = 5000
	TagMaxLength      = 30
	MaxTags           = 20
)

// CampusEmail matches institutional addresses accepted at registration.
type CampusEmail struct {
	pattern *regexp.Regexp
}

// NewCampusEmail compiles the configured address pattern.
func NewCampusEmail(pattern string) (*CampusEmail, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile campus email pattern: %w", err)
	}
	return &CampusEmail{pattern: re}, nil
}

// Match reports whether email is a campus address, case-insensitively.
func (c *CampusEmail) Match(email string) bool {
	return c.pattern.MatchString(NormalizeEmail(email))
}

// Register installs the "campus_email" tag on v.
func (c *CampusEmail) Register(v *validator.Validate) error {
	return v.RegisterValidation("campus_email", func(fl validator.FieldLevel) bool {
		return c.Match(fl.Field().String())
	})
}

// RegisterCommon installs the tags shared by every request DTO.
func RegisterCommon(v *validator.Validate) error {
	// rejects whitespace-only strings that "required" lets through
	return v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// NormalizeEmail lowercases and trims an address before lookup or storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeTags trims each tag and drops empties, keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// UniqueTags is NormalizeTags plus first-occurrence de-duplication; profile tags are a set.
func UniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range NormalizeTags(tags) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// CheckTags enforces count and length limits on an already normalized list.
func CheckTags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("at most %d tags are allowed", MaxTags)
	}
	for _, t := range tags {
		if len([]rune(t)) > TagMaxLength {
			return fmt.Errorf("tag %q exceeds %d characters", t, TagMaxLength)
		}
	}
	return nil
}
