package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

func validateConfig(c *Config) error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	switch c.Storage.Backend {
	case "memory":
	case "ldap":
		if err := ValidateLDAPURL(c.Storage.LDAP.URL); err != nil {
			return err
		}
		if c.Storage.LDAP.BaseDN == "" {
			return fmt.Errorf("storage.ldap.base_dn is required for the ldap backend")
		}
	default:
		return fmt.Errorf("storage.backend must be \"memory\" or \"ldap\", got %q", c.Storage.Backend)
	}

	if c.Cache.Enabled {
		if err := ValidateCacheNode(c.Cache.Node); err != nil {
			return err
		}
	}

	if c.Auth.JWT.ExpiryMinutes < 1 {
		return fmt.Errorf("auth.jwt.expiry_minutes must be positive")
	}

	return nil
}

// ValidateLDAPURL validates that a directory URL is properly formatted
func ValidateLDAPURL(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("LDAP URL cannot be empty")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid LDAP URL: %w", err)
	}

	if parsed.Scheme != "ldap" && parsed.Scheme != "ldaps" {
		return fmt.Errorf("LDAP URL must use ldap or ldaps scheme")
	}

	if parsed.Host == "" {
		return fmt.Errorf("LDAP URL must include host")
	}

	return nil
}

// ValidateCacheNode validates Valkey node format
func ValidateCacheNode(node string) error {
	if node == "" {
		return fmt.Errorf("cache node cannot be empty")
	}

	host, port, err := net.SplitHostPort(node)
	if err != nil {
		return fmt.Errorf("cache node must be in format host:port: %w", err)
	}

	if host == "" {
		return fmt.Errorf("cache node must include host")
	}

	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("invalid cache port: %w", err)
	}

	return nil
}
