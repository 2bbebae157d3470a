package record

import (
	"sort"
	"time"
)

// DayBucket partitions one day's records by category, most recent first.
type DayBucket map[RecordType][]Record

// BucketRecords groups records by type and orders every group by event time,
// then created_at, then id, all descending.
func BucketRecords(records []Record, loc *time.Location) DayBucket {
	bucket := make(DayBucket, len(AllTypes))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		bucket[rec.Type()] = append(bucket[rec.Type()], rec)
	}
	for _, group := range bucket {
		SortNewestFirst(group, loc)
	}
	return bucket
}

// SortNewestFirst orders records in place, most recent first.
func SortNewestFirst(records []Record, loc *time.Location) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		ae, be := EventTimeOf(a, loc), EventTimeOf(b, loc)
		if !ae.Equal(be) {
			return ae.After(be)
		}
		ac, bc := CreatedTime(a, loc), CreatedTime(b, loc)
		if !ac.Equal(bc) {
			return ac.After(bc)
		}
		return a.Base().ID > b.Base().ID
	})
}

// Latest returns the most recent record of t, or nil.
func (b DayBucket) Latest(t RecordType) Record {
	if group := b[t]; len(group) > 0 {
		return group[0]
	}
	return nil
}

// Len counts the records of t.
func (b DayBucket) Len(t RecordType) int {
	return len(b[t])
}

// IDs lists every record id in the bucket.
func (b DayBucket) IDs() []int64 {
	var ids []int64
	for _, t := range AllTypes {
		for _, rec := range b[t] {
			ids = append(ids, rec.Base().ID)
		}
	}
	return ids
}

// Of narrows one group to its concrete variant.
func Of[T Record](b DayBucket, t RecordType) []T {
	group := b[t]
	out := make([]T, 0, len(group))
	for _, rec := range group {
		if typed, ok := rec.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}
