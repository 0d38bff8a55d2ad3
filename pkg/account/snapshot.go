package account

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/internal/metrics"
	"github.com/goconnect-io/goconnect/pkg/vehicle"
)

// Snapshot returns every vehicle visible to the account, each merged from the details and system
// overview queries.
//
// Only a failure to list vehicles is returned as an error. If enriching a vehicle fails, the
// vehicle is reported with the fields from the list query instead. Entries without an id are
// dropped.
func (a *Account) Snapshot(ctx context.Context) (*vehicle.Aggregate, error) {
	list, err := a.Vehicles(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]vehicle.Entry, 0, len(list.Data.Viewer.Vehicles))
	for _, entry := range list.Data.Viewer.Vehicles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := entry.Vehicle.ID()
		if id == "" {
			continue
		}
		record, err := a.enrich(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Error("Error fetching details for vehicle %s: %s", id, err)
			metrics.VehicleFallbacks.Inc()
			entries = append(entries, entry)
			continue
		}
		if record == nil {
			log.Warning("Failed to get details for vehicle %s", id)
			metrics.VehicleFallbacks.Inc()
			entries = append(entries, entry)
			continue
		}
		log.Debug("Updated vehicle %s", record.Name())
		entries = append(entries, vehicle.Entry{Vehicle: record})
	}
	return vehicle.NewAggregate(entries), nil
}

// enrich fetches the details and system overview of a vehicle concurrently. It returns a nil
// record if the details reply does not contain a vehicle.
func (a *Account) enrich(ctx context.Context, id string) (vehicle.Record, error) {
	var details, overview *vehicle.DetailResponse
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() (err error) {
		details, err = a.VehicleDetails(groupCtx, id)
		return err
	})
	group.Go(func() (err error) {
		overview, err = a.VehicleSystemOverview(groupCtx, id)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	base := details.Record()
	if base == nil {
		return nil, nil
	}
	return vehicle.Merge(base, overview.Record()), nil
}
