package engine

import (
	"errors"
	"sort"

	"github.com/scdkit/scdkit/internal/fingerprint"
	"github.com/scdkit/scdkit/internal/record"
)

// Outcome is the classification of one business key.
type Outcome int

const (
	// OutcomeNew means the key is absent from the current history slice.
	OutcomeNew Outcome = iota
	// OutcomeChanged means the key exists but its fingerprint differs.
	OutcomeChanged
	// OutcomeUnchanged means the fingerprints match; no mutation.
	OutcomeUnchanged
	// OutcomeRemoved means the key has a current row but no source record.
	// Only emitted when removal detection is enabled.
	OutcomeRemoved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNew:
		return "new"
	case OutcomeChanged:
		return "changed"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Delta is one classified key with everything the merger needs to apply
// it: the source record and its fingerprint (nil/empty for Removed) and
// the matched prior version (nil for New).
type Delta struct {
	Key      string
	KeyValue record.Value
	Outcome  Outcome
	Source   *record.Record
	Hash     fingerprint.Fingerprint
	Prior    *VersionRow
}

// Classify compares the source snapshot against the current history slice.
//
// It is a pure function of its inputs: source deltas come out in snapshot
// order, removed keys (when detectRemoved is set) follow in canonical key
// order. Per-key processing downstream is independent, so no further
// ordering is promised or required.
//
// Every source key maps to exactly one of New/Changed/Unchanged. A
// duplicated business key in the source is a data error and fails the
// whole classification; silently picking one record would corrupt the
// history.
func Classify(
	source []*record.Record,
	current map[string]VersionRow,
	businessKey string,
	monitored []string,
	detectRemoved bool,
) ([]Delta, error) {
	deltas := make([]Delta, 0, len(source))
	seen := make(map[string]bool, len(source))

	for _, rec := range source {
		keyVal, ok := rec.Get(businessKey)
		if !ok {
			return nil, NewMissingAttributeError(businessKey)
		}
		key := keyVal.Canonical()
		if seen[key] {
			return nil, NewDuplicateKeyError(keyVal.String())
		}
		seen[key] = true

		hash, err := fingerprint.Compute(rec, monitored)
		if err != nil {
			var missing *fingerprint.MissingAttributeError
			if errors.As(err, &missing) {
				return nil, NewMissingAttributeError(missing.Attribute)
			}
			return nil, err
		}

		prior, exists := current[key]
		switch {
		case !exists:
			deltas = append(deltas, Delta{
				Key: key, KeyValue: keyVal, Outcome: OutcomeNew, Source: rec, Hash: hash,
			})
		case prior.RowHash != hash:
			p := prior
			deltas = append(deltas, Delta{
				Key: key, KeyValue: keyVal, Outcome: OutcomeChanged, Source: rec, Hash: hash, Prior: &p,
			})
		default:
			p := prior
			deltas = append(deltas, Delta{
				Key: key, KeyValue: keyVal, Outcome: OutcomeUnchanged, Source: rec, Hash: hash, Prior: &p,
			})
		}
	}

	if detectRemoved {
		removed := make([]string, 0)
		for key := range current {
			if !seen[key] {
				removed = append(removed, key)
			}
		}
		sort.Strings(removed)
		for _, key := range removed {
			p := current[key]
			deltas = append(deltas, Delta{
				Key: key, KeyValue: p.KeyValue, Outcome: OutcomeRemoved, Prior: &p,
			})
		}
	}

	return deltas, nil
}
