package similarity

import (
	"fmt"
	"sort"

	"skywatch.earth/skywatch/internal/normalize"
)

// unknownBucket is the sentinel for reports with no usable country or event
// date. Such reports still get compared within their own bucket.
const unknownBucket = "unknown"

// Block is one comparison partition: all reports sharing a country and event
// year-month.
type Block struct {
	Key     string
	Reports []normalize.Normalized
}

// Pair is one candidate comparison produced by the blocking pass.
type Pair struct {
	A normalize.Normalized
	B normalize.Normalized
}

// BlockKey buckets a report by country and event year-month. Either part
// falls back to the unknown sentinel when missing.
func BlockKey(n normalize.Normalized) string {
	country := n.Country
	if country == "" {
		country = unknownBucket
	}

	month := unknownBucket
	if n.EventDate != nil {
		month = n.EventDate.Format("2006-01")
	}
	return country + "|" + month
}

// Blocks partitions reports by BlockKey, returning blocks in sorted key order
// for deterministic sweeps.
func Blocks(reports []normalize.Normalized) []Block {
	byKey := make(map[string][]normalize.Normalized)
	for _, n := range reports {
		key := BlockKey(n)
		byKey[key] = append(byKey[key], n)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	blocks := make([]Block, 0, len(keys))
	for _, key := range keys {
		blocks = append(blocks, Block{Key: key, Reports: byKey[key]})
	}
	return blocks
}

// NextMonthKey returns the block key for the calendar month following the
// given key within the same country, or false when the key has no usable
// month part.
func NextMonthKey(key string) (string, bool) {
	country, year, month, ok := splitKey(key)
	if !ok {
		return "", false
	}

	month++
	if month > 12 {
		month = 1
		year++
	}
	return fmt.Sprintf("%s|%04d-%02d", country, year, month), true
}

// Pairs enumerates every comparison the sweep must run: all pairs within each
// block, plus cross pairs between each block and the next calendar month of
// the same country. Cross-month pairing only looks forward so each adjacent
// pair of blocks is walked once.
func Pairs(blocks []Block) []Pair {
	byKey := make(map[string][]normalize.Normalized, len(blocks))
	for _, b := range blocks {
		byKey[b.Key] = b.Reports
	}

	var pairs []Pair
	for _, b := range blocks {
		for i := 0; i < len(b.Reports); i++ {
			for j := i + 1; j < len(b.Reports); j++ {
				pairs = append(pairs, Pair{A: b.Reports[i], B: b.Reports[j]})
			}
		}

		next, ok := NextMonthKey(b.Key)
		if !ok {
			continue
		}
		for _, a := range b.Reports {
			for _, other := range byKey[next] {
				pairs = append(pairs, Pair{A: a, B: other})
			}
		}
	}
	return pairs
}

func splitKey(key string) (country string, year, month int, ok bool) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '|' {
			country = key[:i]
			rest := key[i+1:]
			if rest == unknownBucket {
				return "", 0, 0, false
			}
			if _, err := fmt.Sscanf(rest, "%4d-%2d", &year, &month); err != nil {
				return "", 0, 0, false
			}
			if month < 1 || month > 12 {
				return "", 0, 0, false
			}
			return country, year, month, true
		}
	}
	return "", 0, 0, false
}
