package filevault

import (
	"bytes"
	"sort"

	"github.com/sirupsen/logrus"
)

// ConsistencyReport lists entries whose frame and metadata record disagree.
// Check never repairs anything.
type ConsistencyReport struct {
	// Entries is the number of identifiers with both a frame and a record
	Entries int

	// OrphanFrames have a frame file but no metadata record
	OrphanFrames []string

	// OrphanRecords have a metadata record but no frame file
	OrphanRecords []string

	// Truncated frames are shorter than salt plus IV
	Truncated []string

	// SaltMismatches have a record whose salt differs from the frame's salt
	SaltMismatches []string
}

// Consistent reports whether no problems were found
func (r *ConsistencyReport) Consistent() bool {
	return len(r.OrphanFrames) == 0 &&
		len(r.OrphanRecords) == 0 &&
		len(r.Truncated) == 0 &&
		len(r.SaltMismatches) == 0
}

// Check compares every frame file with the metadata catalog
func (v *Vault) Check() (*ConsistencyReport, error) {
	v.opMu.RLock()
	defer v.opMu.RUnlock()
	if v.closed.Load() {
		return nil, ErrClosed
	}

	ids, err := v.frames.List()
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{}
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		key := FrameName(id)
		seen[key] = true

		meta, ok := v.meta.Get(key)
		if !ok {
			report.OrphanFrames = append(report.OrphanFrames, id)
			continue
		}
		report.Entries++

		data, err := v.frames.Read(id)
		if err != nil {
			if isNotExist(err) {
				// removed after List
				report.Entries--
				report.OrphanRecords = append(report.OrphanRecords, id)
				continue
			}
			return nil, err
		}

		frame, err := ParseFrame(data)
		if err != nil {
			report.Truncated = append(report.Truncated, id)
			continue
		}

		salt, err := meta.SaltBytes()
		if err != nil || !bytes.Equal(salt, frame.Salt) {
			report.SaltMismatches = append(report.SaltMismatches, id)
		}
	}

	for _, key := range v.meta.Keys() {
		if seen[key] {
			continue
		}
		id, ok := IdentifierFromFrameName(key)
		if !ok {
			id = key
		}
		report.OrphanRecords = append(report.OrphanRecords, id)
	}

	sort.Strings(report.OrphanFrames)
	sort.Strings(report.OrphanRecords)
	sort.Strings(report.Truncated)
	sort.Strings(report.SaltMismatches)

	entry := v.logger.WithFields(logrus.Fields{
		"entries":         report.Entries,
		"orphan_frames":   len(report.OrphanFrames),
		"orphan_records":  len(report.OrphanRecords),
		"truncated":       len(report.Truncated),
		"salt_mismatches": len(report.SaltMismatches),
	})
	if report.Consistent() {
		entry.Debug("Consistency check passed")
	} else {
		entry.Warn("Consistency check found problems")
	}

	return report, nil
}
