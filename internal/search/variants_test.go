package search

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExpandAlwaysIncludesOriginal(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "Simple", query: "kis enable"},
		{name: "SingleToken", query: "pmu"},
		{name: "Underscore", query: "aop_sensor_get_data"},
		{name: "NoTokens", query: "!!! ???"},
		{name: "LongQuery", query: "kis enable fails with pmu reset timeout on boot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultSynonyms().Expand(tt.query)
			if len(got) == 0 {
				t.Fatal("Expand returned empty list")
			}
			found := false
			for _, v := range got {
				if v == tt.query {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("original query %q missing from variants", tt.query)
			}
			if len(got) > 45 {
				t.Errorf("variant count %d exceeds bound", len(got))
			}
		})
	}
}

func TestExpandDeduplicates(t *testing.T) {
	got := DefaultSynonyms().Expand("reset reset reset")
	seen := make(map[string]bool)
	for _, v := range got {
		if seen[v] {
			t.Fatalf("duplicate variant %q", v)
		}
		seen[v] = true
	}
}

func TestExpandSynonymLadder(t *testing.T) {
	got := DefaultSynonyms().Expand("kis enable")
	joined := strings.Join(got, "|")
	if !strings.Contains(joined, "kernel integrity") {
		t.Errorf("synonym expansion missing, variants: %v", got)
	}
	// Exact form must precede synonym substitutions.
	exact, synonym := -1, -1
	for i, v := range got {
		if v == "kis" && exact < 0 {
			exact = i
		}
		if strings.HasPrefix(v, "kernel integrity") && synonym < 0 {
			synonym = i
		}
	}
	if exact < 0 || synonym < 0 || exact > synonym {
		t.Errorf("exact form at %d, synonym at %d", exact, synonym)
	}
}

func TestExpandPrefixSlices(t *testing.T) {
	got := DefaultSynonyms().Expand("kis enable fails today")
	has2, has3 := false, false
	for _, v := range got {
		if v == "kis enable" {
			has2 = true
		}
		if v == "kis enable fails" {
			has3 = true
		}
	}
	if !has2 || !has3 {
		t.Errorf("prefix slices missing: 2-token=%v 3-token=%v", has2, has3)
	}
}

func TestLoadSynonymsMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "synonyms.yaml")
	data := "spu:\n  - SPU\n  - sensor processor\nkis:\n  - KIS only\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	tbl, err := LoadSynonyms(path)
	if err != nil {
		t.Fatalf("LoadSynonyms: %v", err)
	}
	if len(tbl["spu"]) != 2 {
		t.Errorf("new key spu = %v", tbl["spu"])
	}
	if len(tbl["kis"]) != 1 || tbl["kis"][0] != "KIS only" {
		t.Errorf("file entry should win: kis = %v", tbl["kis"])
	}
	if len(tbl["pmu"]) == 0 {
		t.Error("defaults lost during merge")
	}
}
