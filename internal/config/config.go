// Package config decodes the optional geometry-override YAML file a
// caller can supply to skip scanning entirely when the geometry is
// already known from other recovery tooling - SPEC_FULL's ambient
// Configuration addition, and the headless equivalent of
// original_source's expert-mode ask_number prompts.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/shubham/ntfsboot/internal/rebuild"
)

// GeometryOverride mirrors internal/rebuild.Override's fields for YAML
// decoding; kept distinct from Override itself so the on-disk schema
// doesn't silently change if Override ever grows fields the config
// file format shouldn't expose yet.
type GeometryOverride struct {
	SectorsPerCluster uint32 `yaml:"sectors_per_cluster"`
	MFTLcn            uint64 `yaml:"mft_lcn"`
	MFTMirrLcn        uint64 `yaml:"mftmirr_lcn"`
	MFTRecordSize     uint32 `yaml:"mft_record_size"`
}

// LoadGeometryOverride reads and decodes path into a rebuild.Override.
func LoadGeometryOverride(path string) (*rebuild.Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading geometry override %s", path)
	}

	var g GeometryOverride
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrapf(err, "config: parsing geometry override %s", path)
	}

	return &rebuild.Override{
		SectorsPerCluster: g.SectorsPerCluster,
		MFTLcn:            g.MFTLcn,
		MFTMirrLcn:        g.MFTMirrLcn,
		MFTRecordSize:     g.MFTRecordSize,
	}, nil
}
