package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGeometryOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geometry.yaml")
	content := "sectors_per_cluster: 8\nmft_lcn: 4096\nmftmirr_lcn: 65536\nmft_record_size: 1024\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	override, err := LoadGeometryOverride(path)
	if err != nil {
		t.Fatalf("LoadGeometryOverride: %v", err)
	}
	if override.SectorsPerCluster != 8 || override.MFTLcn != 4096 || override.MFTMirrLcn != 65536 {
		t.Errorf("override = %+v, want spc=8 mft=4096 mftmirr=65536", override)
	}
}

func TestLoadGeometryOverrideMissingFile(t *testing.T) {
	if _, err := LoadGeometryOverride("/nonexistent/geometry.yaml"); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
