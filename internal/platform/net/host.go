// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package net normalizes the network endpoints of time authorities.
package net

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeHost validates a bare host (name or IP literal) and returns its
// lower-case ASCII form. Internationalized names are converted to punycode.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	switch {
	case host == "":
		return "", fmt.Errorf("host is empty")
	case strings.Contains(host, "://"):
		return "", fmt.Errorf("host must not include scheme: %s", raw)
	case strings.ContainsAny(host, "/?#"):
		return "", fmt.Errorf("host must not include path: %s", raw)
	case strings.Contains(host, "@"):
		return "", fmt.Errorf("host must not include userinfo: %s", raw)
	case strings.Contains(host, "%"):
		return "", fmt.Errorf("host must not include zone: %s", raw)
	}

	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(ip.String()), nil
	}
	if strings.Contains(host, ":") {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}

	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

// HostPort normalizes "host", "host:port" or "[v6]:port" and fills in
// defaultPort when no port is given.
func HostPort(raw string, defaultPort int) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("address is empty")
	}

	host, port := s, ""
	if h, p, err := net.SplitHostPort(s); err == nil {
		host, port = h, p
	} else if strings.HasPrefix(s, "[") || strings.Count(s, ":") == 1 {
		return "", fmt.Errorf("invalid address %q: %w", raw, err)
	}

	normalized, err := NormalizeHost(host)
	if err != nil {
		return "", err
	}

	if port == "" {
		if defaultPort <= 0 {
			return "", fmt.Errorf("address %q has no port", raw)
		}
		port = strconv.Itoa(defaultPort)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid port %q in %q", port, raw)
	}
	return net.JoinHostPort(normalized, port), nil
}
