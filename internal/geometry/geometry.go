// Package geometry infers the NTFS cluster geometry - sectors per
// cluster, and optionally a corrected partition offset - from MFT
// record observations gathered by internal/mftscan. It is pure
// arithmetic: no disk access, no logging, nothing stateful, which
// matches original_source/src/ntfs_adv.c's read_mft_info and the
// pair-correlation block of rebuild_NTFS_BS being number theory over
// plain integers.
package geometry

// validSPC is the set of cluster sizes NTFS permits, sectors_per_cluster
// in {1,2,4,8,16,32,64,128}.
var validSPC = map[uint64]bool{
	1: true, 2: true, 4: true, 8: true, 16: true, 32: true, 64: true, 128: true,
}

// Observation mirrors internal/mftscan.Observation's three fields; it
// is redeclared here rather than imported so that the resolver has no
// dependency on the scanner package, keeping it a free function per
// the design notes' "extract as a stateless function" guidance.
type Observation struct {
	Sector     uint64
	MFTLcn     uint64
	MFTMirrLcn uint64
}

// ResolveSingle implements read_mft_info's divisibility guess: given one
// observation, try dividing the observed sector by the larger LCN
// first, then the smaller, accepting the first quotient that is a
// valid power-of-two sectors-per-cluster. Returns (spc, true) on
// success.
//
// Dividing by the larger LCN first matters: S2 in the testable
// properties shows dividing by the smaller LCN can produce a
// spuriously valid power of two when the smaller LCN itself divides
// the larger one.
func ResolveSingle(o Observation) (spc uint64, ok bool) {
	if o.Sector == 0 {
		return 0, false
	}
	first, second := o.MFTLcn, o.MFTMirrLcn
	if second > first {
		first, second = second, first
	}
	if spc, ok := tryDivide(o.Sector, first); ok {
		return spc, true
	}
	if spc, ok := tryDivide(o.Sector, second); ok {
		return spc, true
	}
	return 0, false
}

func tryDivide(sector, lcn uint64) (uint64, bool) {
	if lcn == 0 || sector%lcn != 0 {
		return 0, false
	}
	q := sector / lcn
	if validSPC[q] {
		return q, true
	}
	return 0, false
}

// PairResult is one accepted pair-correlation candidate: the inferred
// sectors-per-cluster plus the partition-offset correction it implies,
// in sectors (CorrectedOffset converts it to bytes), per
// original_source's new_part_offset computation.
type PairResult struct {
	SectorsPerCluster   uint64
	OffsetCorrectionLCN int64 // (sector_i - lcn_i*spc), still in sectors
}

// CorrectedOffset computes the byte offset original_source logs as the
// "potential partition offset": oldOffset + OffsetCorrectionLCN*sectorSize.
func (p PairResult) CorrectedOffset(oldOffset int64, sectorSize uint32) int64 {
	return oldOffset + p.OffsetCorrectionLCN*int64(sectorSize)
}

// Resolve runs the pair-correlation search over every ordered pair of
// observations and all four role assignments
// (mft_i,mftmirr_j)/(mftmirr_i,mft_j) x (i,j)/(j,i), exactly as spec'd:
// prefer exhaustive enumeration over short-circuiting, since the search
// space is bounded (C(10,2)*4 = 180 trials at the observation cap).
//
// The divisibility test uses %, not /: original_source's own resolver
// used a floating division-then-compare-to-zero idiom in one branch
// that silently set spc=0 and no-opped instead of testing divisibility;
// this is fixed here to use % for the test before computing the
// quotient with /, a deliberate bug-fix noted in DESIGN.md.
func Resolve(obs []Observation) []PairResult {
	var results []PairResult
	for i := 0; i < len(obs); i++ {
		for j := 0; j < len(obs); j++ {
			if i == j {
				continue
			}
			results = append(results, tryPair(obs[i], obs[j])...)
		}
	}
	return results
}

// tryPair evaluates the two role assignments for one ordered (a, b)
// pair: (mft_a, mftmirr_b) and (mftmirr_a, mft_b), each requiring
// sector_b > sector_a so the sector difference is meaningful.
func tryPair(a, b Observation) []PairResult {
	var out []PairResult
	if b.Sector <= a.Sector {
		return out
	}
	sectorDiff := b.Sector - a.Sector

	roles := []struct{ lcnA, lcnB uint64 }{
		{a.MFTLcn, b.MFTMirrLcn},
		{a.MFTMirrLcn, b.MFTLcn},
	}
	for _, r := range roles {
		if r, ok := tryRole(sectorDiff, r.lcnA, r.lcnB, a.Sector); ok {
			out = append(out, r)
		}
	}
	return out
}

// tryRole tests one role assignment's divisibility and, on success,
// computes the offset correction relative to lcnA (the "i" side).
func tryRole(sectorDiff, lcnA, lcnB, sectorA uint64) (PairResult, bool) {
	var lcnDiff int64
	if lcnB >= lcnA {
		lcnDiff = int64(lcnB - lcnA)
	} else {
		lcnDiff = int64(lcnA - lcnB)
	}
	if lcnDiff == 0 {
		return PairResult{}, false
	}
	sd := int64(sectorDiff)
	if sd%lcnDiff != 0 {
		return PairResult{}, false
	}
	q := sd / lcnDiff
	if q <= 0 || !validSPC[uint64(q)] {
		return PairResult{}, false
	}
	correction := int64(sectorA) - int64(lcnA)*q
	return PairResult{SectorsPerCluster: uint64(q), OffsetCorrectionLCN: correction}, true
}
