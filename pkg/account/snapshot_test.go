package account

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goconnect-io/goconnect/internal/metrics"
	"github.com/goconnect-io/goconnect/pkg/protocol"
	"github.com/goconnect-io/goconnect/pkg/vehicle"
)

var _ = Describe("Snapshot", func() {
	var (
		server *backend
		ctx    context.Context
		acct   *Account
	)

	BeforeEach(func() {
		server = newBackend()
		ctx = context.Background()
		acct = server.account(Credentials{DeviceToken: "device"})
		server.on(loginDevice, DeviceTokenLoginURL, tokenReply("bearer"))
	})

	overviewOf := func(id string) map[string]interface{} {
		return map[string]interface{}{"id": id, "odometer": map[string]interface{}{"odometer": 1200.0}}
	}

	It("drops entries without an id", func() {
		server.onQuery("VehiclesType", "", listReply("v1", nil, ""))
		server.onQuery("Vehicle", "v1", vehicleReply(map[string]interface{}{"id": "v1"}))
		server.onQuery("VehicleSystemOverview", "v1", vehicleReply(overviewOf("v1")))

		aggregate, err := acct.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(aggregate.Vehicles()).To(HaveLen(1))
		Expect(aggregate.Vehicles()[0].ID()).To(Equal("v1"))
		Expect(server.count("Vehicle")).To(Equal(0))
	})

	It("merges the overview into the details without replacing brandContactInfo", func() {
		server.onQuery("VehiclesType", "", listReply("v1"))
		server.onQuery("Vehicle", "v1", vehicleReply(map[string]interface{}{
			"id":                     "v1",
			"vin":                    "WVWZZZ",
			"odometer":               map[string]interface{}{"odometer": 1000.0},
			vehicle.BrandContactInfo: map[string]interface{}{"name": "A"},
		}))
		server.onQuery("VehicleSystemOverview", "v1", vehicleReply(map[string]interface{}{
			"id":                     "v1",
			"odometer":               map[string]interface{}{"odometer": 1200.0},
			"isCharging":             false,
			vehicle.BrandContactInfo: map[string]interface{}{"name": "B"},
		}))

		aggregate, err := acct.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		record, ok := aggregate.Find("v1")
		Expect(ok).To(BeTrue())
		Expect(record[vehicle.BrandContactInfo]).To(HaveKeyWithValue("name", "A"))
		Expect(record["odometer"]).To(HaveKeyWithValue("odometer", 1200.0))
		Expect(record).To(HaveKeyWithValue("isCharging", false))
		Expect(record).To(HaveKeyWithValue("vin", "WVWZZZ"))
		Expect(record).NotTo(HaveKey("fuelType"))
	})

	It("keeps the list entry of a vehicle whose details fail", func() {
		server.onQuery("VehiclesType", "", listReply("v1", "v2"))
		server.onQuery("Vehicle", "v1", status(500))
		server.onQuery("VehicleSystemOverview", "v1", vehicleReply(overviewOf("v1")))
		server.onQuery("Vehicle", "v2", vehicleReply(map[string]interface{}{"id": "v2", "vin": "WVW2"}))
		server.onQuery("VehicleSystemOverview", "v2", vehicleReply(overviewOf("v2")))
		before := testutil.ToFloat64(metrics.VehicleFallbacks)

		aggregate, err := acct.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(aggregate.Vehicles()).To(HaveLen(2))

		fallback, ok := aggregate.Find("v1")
		Expect(ok).To(BeTrue())
		Expect(fallback).To(Equal(vehicle.Record{"id": "v1", "fuelType": "petrol"}))

		enriched, ok := aggregate.Find("v2")
		Expect(ok).To(BeTrue())
		Expect(enriched).To(HaveKeyWithValue("vin", "WVW2"))
		Expect(enriched).To(HaveKey("odometer"))
		Expect(testutil.ToFloat64(metrics.VehicleFallbacks)).To(Equal(before + 1))
	})

	It("keeps the list entry when the overview fails", func() {
		server.onQuery("VehiclesType", "", listReply("v1"))
		server.onQuery("Vehicle", "v1", vehicleReply(map[string]interface{}{"id": "v1", "vin": "WVW"}))
		server.onQuery("VehicleSystemOverview", "v1", status(503))

		aggregate, err := acct.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		record, _ := aggregate.Find("v1")
		Expect(record).NotTo(HaveKey("vin"))
	})

	It("treats details without a vehicle as a failure", func() {
		server.onQuery("VehiclesType", "", listReply("v1"))
		server.onQuery("Vehicle", "v1", jsonReply(map[string]interface{}{"data": map[string]interface{}{}}))
		server.onQuery("VehicleSystemOverview", "v1", vehicleReply(overviewOf("v1")))

		aggregate, err := acct.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		record, ok := aggregate.Find("v1")
		Expect(ok).To(BeTrue())
		Expect(record).NotTo(HaveKey("odometer"))
	})

	It("uses the details when the overview has no vehicle", func() {
		server.onQuery("VehiclesType", "", listReply("v1"))
		server.onQuery("Vehicle", "v1", vehicleReply(map[string]interface{}{"id": "v1", "vin": "WVW"}))
		server.onQuery("VehicleSystemOverview", "v1", jsonReply(map[string]interface{}{"data": nil}))

		aggregate, err := acct.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		record, _ := aggregate.Find("v1")
		Expect(record).To(HaveKeyWithValue("vin", "WVW"))
	})

	It("returns an empty aggregate when the list is missing", func() {
		server.onQuery("VehiclesType", "", jsonReply(map[string]interface{}{"data": map[string]interface{}{}}))

		aggregate, err := acct.Snapshot(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(aggregate.Vehicles()).To(BeEmpty())
	})

	It("fails when the vehicles cannot be listed", func() {
		server.onQuery("VehiclesType", "", status(500))

		_, err := acct.Snapshot(ctx)
		Expect(protocol.IsCommunication(err)).To(BeTrue())
	})

	It("stops when the context is cancelled", func() {
		server.onQuery("VehiclesType", "", listReply("v1"))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := acct.Snapshot(cancelled)
		Expect(err).To(MatchError(context.Canceled))
	})
})
