package reconcile

import (
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/overlay"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/pkg/timestamp"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/provider"
)

// Merge combines a provider record with local overlay fields. Every remote
// field is kept; an overlay field is added only where the record has no
// value of its own. Timestamps come out in canonical ISO form.
func Merge(rec provider.Record, fields *overlay.Fields) provider.Record {
	out := rec.Clone()
	timestamp.NormalizeRecord(out)

	// an empty remote proxy code counts as absent so a stored code can fill it
	if code, ok := out["proxy_country_code"].(string); ok && code == "" {
		delete(out, "proxy_country_code")
	}

	if fields != nil {
		for key, v := range fields.Map() {
			if existing, ok := out[key]; !ok || existing == nil {
				out[key] = v
			}
		}
	}

	if enabled, ok := out["use_proxy"].(bool); ok && !enabled {
		delete(out, "proxy_country_code")
	}
	return out
}

// proxyEnabled reports the effective use_proxy flag: the record's value when
// it has one, else the fallback, else true so nothing is dropped on a guess.
func proxyEnabled(rec provider.Record, fallback *bool) bool {
	if v, ok := rec["use_proxy"].(bool); ok {
		return v
	}
	if fallback != nil {
		return *fallback
	}
	return true
}
