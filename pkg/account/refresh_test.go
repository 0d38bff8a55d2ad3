package account

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/goconnect-io/goconnect/pkg/connector/inet"
	"github.com/goconnect-io/goconnect/pkg/poller"
)

var _ = Describe("Polling an account", func() {
	hang := func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}

	It("falls back for a vehicle whose requests time out", func() {
		server := newBackend()
		acct := server.account(Credentials{DeviceToken: "device"})
		acct.transport.(*inet.Transport).Timeout = 50 * time.Millisecond
		server.on(loginDevice, DeviceTokenLoginURL, tokenReply("bearer"))
		server.onQuery("VehiclesType", "", listReply("slow", "ok"))
		server.onQuery("Vehicle", "slow", hang)
		server.onQuery("VehicleSystemOverview", "slow", hang)
		server.onQuery("Vehicle", "ok", vehicleReply(map[string]interface{}{"id": "ok", "vin": "WVW1"}))
		server.onQuery("VehicleSystemOverview", "ok", vehicleReply(map[string]interface{}{"id": "ok"}))

		p, err := poller.New(acct, poller.MinInterval)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Timeout).To(BeZero())

		data, err := p.Refresh(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(data.Vehicles()).To(HaveLen(2))
		slow, ok := data.Find("slow")
		Expect(ok).To(BeTrue())
		Expect(slow).To(HaveKeyWithValue("fuelType", "petrol"))
		fast, ok := data.Find("ok")
		Expect(ok).To(BeTrue())
		Expect(fast).To(HaveKeyWithValue("vin", "WVW1"))
	})
})
