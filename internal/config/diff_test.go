// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDiff_NoChanges(t *testing.T) {
	s := Diff(Defaults(), Defaults())
	assert.False(t, s.Changed())
	assert.False(t, s.RestartRequired)
}

func TestDiff_HotReloadable(t *testing.T) {
	next := Defaults()
	next.Log.Level = "debug"
	next.Sync.Interval = 10 * time.Second
	next.Sync.RegressionPolicy = "clamp"
	next.Version = "ignored"

	s := Diff(Defaults(), next)
	want := []string{"log.level", "sync.interval", "sync.regression_policy"}
	if diff := cmp.Diff(want, s.ChangedFields); diff != "" {
		t.Errorf("changed fields mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, s.RestartRequired)
}

func TestDiff_RestartRequired(t *testing.T) {
	next := Defaults()
	next.Authority.Kind = AuthorityRedis
	next.Server.ListenAddr = ":8081"

	s := Diff(Defaults(), next)
	want := []string{"server.listen_addr", "authority.kind"}
	if diff := cmp.Diff(want, s.ChangedFields); diff != "" {
		t.Errorf("changed fields mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, s.RestartRequired)
}
