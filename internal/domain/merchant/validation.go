package merchant

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	propertyIDPattern = regexp.MustCompile(`^properties/\d+$`)
	shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*(\.[a-z0-9][a-z0-9-]*)+$`)
)

// ValidatePropertyID checks the analytics property id format ("properties/123456789").
func ValidatePropertyID(id string) error {
	if !propertyIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q must look like properties/123456789", ErrInvalidPropertyID, id)
	}
	return nil
}

// NormalizeShopDomain lowercases a shop host and strips any scheme or trailing slash.
func NormalizeShopDomain(raw string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimSuffix(d, "/")
	if len(d) > 255 || !shopDomainPattern.MatchString(d) {
		return "", fmt.Errorf("%w: %q", ErrInvalidShopDomain, raw)
	}
	return d, nil
}
