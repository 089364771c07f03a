package memory

import (
	"fmt"
	"sort"

	"github.com/remiges-tech/searchquery/filter"
	"github.com/remiges-tech/searchquery/providers"
)

// computeFacets builds facet buckets over the filtered result set.
func computeFacets(docs []map[string]interface{}, specs []filter.FacetSpec) map[string][]providers.FacetBucket {
	out := make(map[string][]providers.FacetBucket, len(specs))
	for _, spec := range specs {
		if spec.IsRange() {
			out[spec.Field.String()] = rangeFacet(docs, spec)
		} else {
			out[spec.Field.String()] = valueFacet(docs, spec)
		}
	}
	return out
}

// valueFacet counts distinct values, collection elements counting once
// each. Buckets are ordered by count descending, then value ascending, and
// capped at spec.Count.
func valueFacet(docs []map[string]interface{}, spec filter.FacetSpec) []providers.FacetBucket {
	counts := make(map[interface{}]int64)
	for _, doc := range docs {
		v := lookupValue(doc, spec.Field, nil)
		if elems := toSlice(v); elems != nil {
			seen := make(map[interface{}]bool, len(elems))
			for _, e := range elems {
				if facetable(e) && !seen[e] {
					seen[e] = true
					counts[e]++
				}
			}
			continue
		}
		if facetable(v) {
			counts[v]++
		}
	}

	buckets := make([]providers.FacetBucket, 0, len(counts))
	for v, n := range counts {
		buckets = append(buckets, providers.FacetBucket{Value: v, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return fmt.Sprint(buckets[i].Value) < fmt.Sprint(buckets[j].Value)
	})
	if len(buckets) > spec.Count {
		buckets = buckets[:spec.Count]
	}
	return buckets
}

// facetable limits bucket keys to comparable scalar values.
func facetable(v interface{}) bool {
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return true
	}
	return false
}

// rangeFacet buckets numeric values between the spec boundaries. N
// boundaries produce N+1 buckets: below the first, between each adjacent
// pair (lower bound inclusive), and at or above the last. Empty buckets are
// included so callers see the full range.
func rangeFacet(docs []map[string]interface{}, spec filter.FacetSpec) []providers.FacetBucket {
	bounds := spec.Values
	counts := make([]int64, len(bounds)+1)

	for _, doc := range docs {
		f, ok := toFloat(lookupValue(doc, spec.Field, nil))
		if !ok {
			continue
		}
		idx := len(bounds)
		for i, b := range bounds {
			if f < b {
				idx = i
				break
			}
		}
		counts[idx]++
	}

	buckets := make([]providers.FacetBucket, len(counts))
	for i := range counts {
		b := providers.FacetBucket{Count: counts[i]}
		if i > 0 {
			from := bounds[i-1]
			b.From = &from
		}
		if i < len(bounds) {
			to := bounds[i]
			b.To = &to
		}
		buckets[i] = b
	}
	return buckets
}
