// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"reflect"
	"strings"
)

// ChangeSummary describes the result of comparing two AppConfigs.
type ChangeSummary struct {
	ChangedFields   []string // YAML paths of the fields that changed
	RestartRequired bool     // True if any changed field is not hot-reloadable
}

// Changed reports whether any field differs.
func (s ChangeSummary) Changed() bool {
	return len(s.ChangedFields) > 0
}

// hotReloadable lists the YAML paths (or path prefixes ending in ".") applied
// at runtime. Everything else needs a restart.
var hotReloadable = []string{
	"log.level",
	"sync.",
}

// Diff compares two configurations field by field using YAML paths.
func Diff(old, next AppConfig) ChangeSummary {
	var s ChangeSummary
	s.compareStruct("", reflect.ValueOf(old), reflect.ValueOf(next))
	return s
}

func (s *ChangeSummary) compareStruct(prefix string, oldVal, nextVal reflect.Value) {
	t := oldVal.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := yamlName(f)
		if name == "-" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		ov, nv := oldVal.Field(i), nextVal.Field(i)
		if ov.Kind() == reflect.Struct {
			s.compareStruct(path, ov, nv)
			continue
		}
		if !reflect.DeepEqual(ov.Interface(), nv.Interface()) {
			s.recordChange(path)
		}
	}
}

func (s *ChangeSummary) recordChange(path string) {
	s.ChangedFields = append(s.ChangedFields, path)
	if !isHotReloadable(path) {
		s.RestartRequired = true
	}
}

func isHotReloadable(path string) bool {
	for _, p := range hotReloadable {
		if path == p || (strings.HasSuffix(p, ".") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

func yamlName(f reflect.StructField) string {
	tag := f.Tag.Get("yaml")
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}
