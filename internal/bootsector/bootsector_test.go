package bootsector

import "testing"

func baseParams() Params {
	return Params{
		SectorSize:    512,
		CHS:           CHS{Heads: 254, Sectors: 63},
		PartitionOff:  1 << 20,
		PartitionSize: 1 << 30,
	}
}

func TestComposeBasicLayout(t *testing.T) {
	g := Geometry{SectorsPerCluster: 8, MFTLcn: 4096, MFTMirrLcn: 65536, MFTRecordSize: 1024, IndexBlockSize: 4096}
	img := Compose(g, baseParams())

	if len(img) != Size {
		t.Fatalf("len(img) = %d, want %d", len(img), Size)
	}
	if string(img[0x03:0x0B]) != "NTFS    " {
		t.Errorf("OEM ID = %q, want %q", img[0x03:0x0B], "NTFS    ")
	}
	if !IsValidBootSignature(img) {
		t.Errorf("expected valid boot signature")
	}
	if img[0x15] != 0xF8 {
		t.Errorf("media_descriptor = %#x, want 0xF8", img[0x15])
	}
}

// TestComposeTotalSectorsInvariant checks invariant 3: read_le64(bs, 0x28) ==
// partition.size/sector_size - 1.
func TestComposeTotalSectorsInvariant(t *testing.T) {
	p := baseParams()
	img := Compose(Geometry{SectorsPerCluster: 1, MFTRecordSize: 1024, IndexBlockSize: 4096}, p)
	want := p.PartitionSize/uint64(p.SectorSize) - 1
	got := uint64(0)
	for i := 0; i < 8; i++ {
		got |= uint64(img[0x28+i]) << (8 * i)
	}
	if got != want {
		t.Errorf("total_sectors = %d, want %d", got, want)
	}
}

// TestComposeRoundTrip is invariant 4: composing then parsing returns
// the same spc/mft_lcn/mftmirr_lcn.
func TestComposeRoundTrip(t *testing.T) {
	g := Geometry{SectorsPerCluster: 16, MFTLcn: 777, MFTMirrLcn: 888, MFTRecordSize: 1024, IndexBlockSize: 4096}
	img := Compose(g, baseParams())
	parsed := Parse(img)
	if parsed.SectorsPerCluster != g.SectorsPerCluster || parsed.MFTLcn != g.MFTLcn || parsed.MFTMirrLcn != g.MFTMirrLcn {
		t.Errorf("round trip = %+v, want spc=%d mft=%d mftmirr=%d", parsed, g.SectorsPerCluster, g.MFTLcn, g.MFTMirrLcn)
	}
}

// TestEncodeClusterCountS4 is scenario S4: cluster_bytes=4096,
// mft_record_size=1024 => -(ffs(1024)-1) = -10, stored as 0xF6.
func TestEncodeClusterCountS4(t *testing.T) {
	got := encodeClusterCount(1024, 4096)
	if got != 0xF6 {
		t.Errorf("encodeClusterCount(1024,4096) = %#x, want 0xF6", got)
	}
}

// TestEncodeClusterCountS5 is scenario S5: cluster_bytes=512,
// mft_record_size=4096 => clusters_per_mft_record = 8.
func TestEncodeClusterCountS5(t *testing.T) {
	got := encodeClusterCount(4096, 512)
	if got != 8 {
		t.Errorf("encodeClusterCount(4096,512) = %d, want 8", got)
	}
}

func TestComposePreservesUnnamedBytes(t *testing.T) {
	p := baseParams()
	p.OriginalSector = make([]byte, Size)
	p.OriginalSector[0x02] = 0x42 // part of the jump instruction, not in the field table
	img := Compose(Geometry{SectorsPerCluster: 1, MFTRecordSize: 1024, IndexBlockSize: 4096}, p)
	if img[0x02] != 0x42 {
		t.Errorf("byte 0x02 = %#x, want carried-over 0x42", img[0x02])
	}
}
