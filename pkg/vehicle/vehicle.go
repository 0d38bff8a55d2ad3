// Package vehicle defines the vehicle records returned by the GoConnect backend and the envelope
// used to hand a complete snapshot to callers.
//
// Records are kept as open maps. The backend owns the schema, and a Record is the union of fields
// selected by several queries, so only the fields the client itself relies on are typed.
package vehicle

import (
	"github.com/samber/lo"
)

// BrandContactInfo is only fully populated by the details query and is never taken from the
// system overview.
const BrandContactInfo = "brandContactInfo"

// A Record is one vehicle as decoded from JSON.
type Record map[string]interface{}

// ID returns the vehicle identifier, or "" if the record does not carry a non-empty string id.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Name returns a human readable label for the vehicle, preferring the nickname.
func (r Record) Name() string {
	for _, key := range []string{"name", "licensePlate", "vin", "id"} {
		if value, ok := r[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return lo.Assign(Record{}, r)
}

// Merge returns details updated with every top-level field of overview except brandContactInfo.
// Neither argument is modified.
func Merge(details, overview Record) Record {
	merged := details.Clone()
	if merged == nil {
		merged = Record{}
	}
	for key, value := range lo.OmitByKeys(overview, []string{BrandContactInfo}) {
		merged[key] = value
	}
	return merged
}

// Entry wraps a Record the way the GraphQL viewer query does.
type Entry struct {
	Vehicle Record `json:"vehicle"`
}

type Viewer struct {
	ID       string  `json:"id,omitempty"`
	Vehicles []Entry `json:"vehicles"`
}

type AggregateData struct {
	Viewer Viewer `json:"viewer"`
}

// Aggregate is a snapshot of every vehicle visible to the account. It has the same shape as the
// response to the vehicle list query: {"data": {"viewer": {"vehicles": [{"vehicle": {...}}]}}}.
type Aggregate struct {
	Data AggregateData `json:"data"`
}

// NewAggregate wraps entries in an Aggregate.
func NewAggregate(entries []Entry) *Aggregate {
	if entries == nil {
		entries = []Entry{}
	}
	return &Aggregate{Data: AggregateData{Viewer: Viewer{Vehicles: entries}}}
}

// Vehicles returns the records contained in a.
func (a *Aggregate) Vehicles() []Record {
	if a == nil {
		return nil
	}
	return lo.Map(a.Data.Viewer.Vehicles, func(entry Entry, _ int) Record {
		return entry.Vehicle
	})
}

// Find returns the record with the given id.
func (a *Aggregate) Find(id string) (Record, bool) {
	if a == nil || id == "" {
		return nil, false
	}
	return lo.Find(a.Vehicles(), func(r Record) bool {
		return r.ID() == id
	})
}

// ListResponse is the body returned by the vehicle list query. Missing levels decode as empty.
type ListResponse = Aggregate

// DetailResponse is the body returned by the details and system overview queries.
type DetailResponse struct {
	Data struct {
		Vehicle Record `json:"vehicle"`
	} `json:"data"`
}

// Record returns the nested vehicle, or nil if the response did not contain one.
func (d *DetailResponse) Record() Record {
	if d == nil {
		return nil
	}
	return d.Data.Vehicle
}
