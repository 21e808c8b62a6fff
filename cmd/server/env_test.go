package main

import (
	"flag"
	"testing"
)

func TestApplyEnvOverrides(t *testing.T) {
	origProject := *project
	origAddr := *addr
	origRedis := *redisAddr
	origTrusted := *trustedProxies
	t.Cleanup(func() {
		*project = origProject
		*addr = origAddr
		*redisAddr = origRedis
		*trustedProxies = origTrusted
	})

	t.Run("ZENDESK_PROXY_PROJECT sets project flag", func(t *testing.T) {
		*project = "lms"
		t.Setenv("ZENDESK_PROXY_PROJECT", "cms")
		applyEnvOverrides()
		if *project != "cms" {
			t.Errorf("project = %q, want %q", *project, "cms")
		}
	})

	t.Run("ZENDESK_PROXY_REDIS_ADDR sets redis-addr flag", func(t *testing.T) {
		*redisAddr = ""
		t.Setenv("ZENDESK_PROXY_REDIS_ADDR", "redis:6379")
		applyEnvOverrides()
		if *redisAddr != "redis:6379" {
			t.Errorf("redisAddr = %q, want %q", *redisAddr, "redis:6379")
		}
	})

	t.Run("ZENDESK_PROXY_TRUSTED_PROXIES sets trusted-proxies flag", func(t *testing.T) {
		*trustedProxies = ""
		t.Setenv("ZENDESK_PROXY_TRUSTED_PROXIES", "10.0.0.0/8")
		applyEnvOverrides()
		if *trustedProxies != "10.0.0.0/8" {
			t.Errorf("trustedProxies = %q, want %q", *trustedProxies, "10.0.0.0/8")
		}
	})

	t.Run("unset env leaves flag alone", func(t *testing.T) {
		*addr = ":8080"
		t.Setenv("ZENDESK_PROXY_ADDR", "")
		applyEnvOverrides()
		if *addr != ":8080" {
			t.Errorf("addr = %q, want %q", *addr, ":8080")
		}
	})

	t.Run("explicit flag not overridden by env", func(t *testing.T) {
		// flag.Set marks the flag visited, as passing -addr would.
		_ = flag.Set("addr", ":7777")
		t.Setenv("ZENDESK_PROXY_ADDR", ":9999")
		applyEnvOverrides()
		if *addr != ":7777" {
			t.Errorf("addr = %q, want %q", *addr, ":7777")
		}
	})
}
