package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/peterldowns/testy/check"
)

func TestLoadRegistry_Embedded(t *testing.T) {
	reg, err := LoadRegistry("")
	check.NoError(t, err)

	check.Equal(t, 19, len(reg.Keywords))
	check.Equal(t, 9, len(reg.ActiveSources()))

	byID := map[string]SourceConfig{}
	for _, s := range reg.Sources {
		byID[s.ID] = s
	}
	check.Equal(t, "State", byID["ohio_das"].Type)
	check.Equal(t, 10, byID["ohio_das"].MinTextLength)
	check.Equal(t, ModeBlocks, byID["bidnet_ohio"].Mode)
	check.Equal(t, 20, byID["bidnet_ohio"].MaxItems)
	check.Equal(t, "Cleveland, OH", byID["cleveland"].Location)
	check.Equal(t, ModeLinks, byID["cleveland"].Mode)
}

func TestParseRegistry_DefaultsAndEnv(t *testing.T) {
	t.Setenv("PORTAL_HOST", "bids.example.gov")

	reg, err := ParseRegistry([]byte(`
keywords: ["  Sewer ", ""]
sources:
  - id: demo
    url: https://${PORTAL_HOST}/open
    type: County
  - id: off
    url: https://off.example.gov
    active: false
`))
	check.NoError(t, err)

	check.Equal(t, []string{"sewer"}, reg.Keywords)
	src := reg.Sources[0]
	check.Equal(t, "https://bids.example.gov/open", src.URL)
	check.Equal(t, "demo", src.Name)
	check.Equal(t, ModeLinks, src.Mode)
	check.Equal(t, 15, src.MinTextLength)
	check.Equal(t, 30, src.TimeoutSeconds)

	active := reg.ActiveSources()
	check.Equal(t, 1, len(active))
	check.Equal(t, "demo", active[0].ID)
}

func TestParseRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "no keywords", yaml: "sources: [{id: a, url: https://a.test}]"},
		{name: "missing url", yaml: "keywords: [sewer]\nsources: [{id: a}]"},
		{name: "duplicate id", yaml: "keywords: [sewer]\nsources: [{id: a, url: https://a.test}, {id: a, url: https://b.test}]"},
		{name: "unknown mode", yaml: "keywords: [sewer]\nsources: [{id: a, url: https://a.test, mode: pdf}]"},
		{name: "blocks without selector", yaml: "keywords: [sewer]\nsources: [{id: a, url: https://a.test, mode: blocks}]"},
		{name: "bad yaml", yaml: "keywords: [sewer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.yaml))
			check.Error(t, err)
		})
	}
}

func TestLoadRegistry_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte("keywords: [drainage]\nsources: [{id: x, url: https://x.test}]\n"), 0o600); err != nil {
		t.Fatalf("write sources: %v", err)
	}

	reg, err := LoadRegistry(path)
	check.NoError(t, err)
	check.Equal(t, "x", reg.Sources[0].ID)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	check.Error(t, err)
}
