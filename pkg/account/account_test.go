package account

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goconnect-io/goconnect/internal/metrics"
	"github.com/goconnect-io/goconnect/pkg/protocol"
)

const (
	loginDevice   = "login/deviceToken"
	loginPassword = "login/password"
	register      = "registerDevice"
)

var _ = Describe("Login", func() {
	var (
		server *backend
		ctx    context.Context
	)

	BeforeEach(func() {
		server = newBackend()
		ctx = context.Background()
	})

	It("uses the device token when one is configured", func() {
		server.on(loginDevice, DeviceTokenLoginURL, tokenReply("bearer-1"))
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer-2"))
		acct := server.account(Credentials{DeviceToken: "device", Email: "a@b.c", Password: "pw"})

		Expect(acct.Login(ctx)).To(Succeed())
		Expect(acct.HasToken()).To(BeTrue())
		Expect(server.count(loginDevice)).To(Equal(1))
		Expect(server.count(loginPassword)).To(Equal(0))

		request := server.last(DeviceTokenLoginURL)
		Expect(request.Body).To(Equal(map[string]interface{}{"deviceToken": "device"}))
		Expect(request.Header.Get("User-Agent")).To(Equal(UserAgent))
		Expect(request.Header.Get("X-Organization-Namespace")).To(Equal(OrganizationNamespace))
		Expect(request.Header.Get("Authorization")).To(BeEmpty())
		Expect(request.Header.Get("X-App-Version")).To(BeEmpty())
	})

	It("falls back to the password when the device token is rejected", func() {
		server.on(loginDevice, DeviceTokenLoginURL, status(401))
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		acct := server.account(Credentials{DeviceToken: "device", Email: "a@b.c", Password: "pw"})
		before := testutil.ToFloat64(metrics.Logins.WithLabelValues(methodPassword, "success"))

		Expect(acct.Login(ctx)).To(Succeed())
		Expect(server.count(loginDevice)).To(Equal(1))
		Expect(server.count(loginPassword)).To(Equal(1))
		Expect(server.last(PasswordLoginURL).Body).To(Equal(map[string]interface{}{"email": "a@b.c", "password": "pw"}))
		Expect(testutil.ToFloat64(metrics.Logins.WithLabelValues(methodPassword, "success"))).To(Equal(before + 1))
	})

	It("returns the device token error when no password is configured", func() {
		server.on(loginDevice, DeviceTokenLoginURL, status(403))
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		acct := server.account(Credentials{DeviceToken: "device"})

		err := acct.Login(ctx)
		Expect(protocol.IsAuthentication(err)).To(BeTrue())
		Expect(server.count(loginPassword)).To(Equal(0))
	})

	It("does not fall back on communication errors", func() {
		server.on(loginDevice, DeviceTokenLoginURL, status(500))
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		acct := server.account(Credentials{DeviceToken: "device", Email: "a@b.c", Password: "pw"})

		err := acct.Login(ctx)
		Expect(protocol.IsCommunication(err)).To(BeTrue())
		Expect(server.count(loginPassword)).To(Equal(0))
	})

	It("fails without network traffic when no credentials are usable", func() {
		acct := server.account(Credentials{Email: "a@b.c"})

		err := acct.Login(ctx)
		Expect(protocol.IsAuthentication(err)).To(BeTrue())
		Expect(server.mock.GetTotalCallCount()).To(Equal(0))
	})

	It("treats a reply without a token as an authentication failure", func() {
		server.on(loginPassword, PasswordLoginURL, jsonReply(map[string]interface{}{"user": "x"}))
		acct := server.account(Credentials{Email: "a@b.c", Password: "pw"})

		err := acct.Login(ctx)
		Expect(protocol.IsAuthentication(err)).To(BeTrue())
		Expect(acct.HasToken()).To(BeFalse())
	})

	It("treats an empty token as an authentication failure", func() {
		server.on(loginPassword, PasswordLoginURL, tokenReply(""))
		acct := server.account(Credentials{Email: "a@b.c", Password: "pw"})

		Expect(protocol.IsAuthentication(acct.Login(ctx))).To(BeTrue())
	})
})

var _ = Describe("Queries", func() {
	var (
		server *backend
		ctx    context.Context
		acct   *Account
	)

	BeforeEach(func() {
		server = newBackend()
		ctx = context.Background()
		acct = server.account(Credentials{Email: "a@b.c", Password: "pw"})
	})

	It("logs in before the first query and reuses the token", func() {
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		server.onQuery("VehiclesType", "", listReply("v1"))

		_, err := acct.Vehicles(ctx)
		Expect(err).NotTo(HaveOccurred())
		_, err = acct.Vehicles(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(server.count(loginPassword)).To(Equal(1))
		Expect(server.count("VehiclesType")).To(Equal(2))

		request := server.last(APIURL)
		Expect(request.URL).To(Equal(APIURL + "?operationName=VehiclesType"))
		Expect(request.Header.Get("Authorization")).To(Equal("Bearer bearer"))
		Expect(request.Header.Get("X-App-Version")).To(Equal(AppVersion))
		Expect(request.Header.Get("User-Agent")).To(Equal(UserAgent))
		Expect(request.Body).To(HaveKeyWithValue("variables", map[string]interface{}{}))
		Expect(request.Body).To(HaveKeyWithValue("query", vehiclesQuery))
	})

	It("sends the vehicle id and open lead filter", func() {
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		server.onQuery("VehicleSystemOverview", "v1", vehicleReply(map[string]interface{}{"id": "v1"}))
		server.onQuery("Vehicle", "v1", vehicleReply(map[string]interface{}{"id": "v1", "vin": "WVW"}))

		overview, err := acct.VehicleSystemOverview(ctx, "v1")
		Expect(err).NotTo(HaveOccurred())
		Expect(overview.Record().ID()).To(Equal("v1"))
		request := server.last(APIURL)
		Expect(request.URL).To(Equal(APIURL + "?operationName=VehicleSystemOverview&screenName=Overview"))
		Expect(request.Body["variables"]).To(Equal(map[string]interface{}{
			"id":       "v1",
			"statuses": []interface{}{"open"},
		}))

		details, err := acct.VehicleDetails(ctx, "v1")
		Expect(err).NotTo(HaveOccurred())
		Expect(details.Record()["vin"]).To(Equal("WVW"))
		Expect(server.last(APIURL).URL).To(Equal(APIURL + "?operationName=Vehicle&screenName=Overview"))
	})

	It("logs in again and retries once when the token is rejected", func() {
		server.on(loginPassword, PasswordLoginURL, tokenReply("old"), tokenReply("new"))
		server.onQuery("VehiclesType", "", status(401), listReply("v1"))

		list, err := acct.Vehicles(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(list.Vehicles()).To(HaveLen(1))
		Expect(server.count(loginPassword)).To(Equal(2))
		Expect(server.count("VehiclesType")).To(Equal(2))
		Expect(server.last(APIURL).Header.Get("Authorization")).To(Equal("Bearer new"))
	})

	It("gives up after a single retry", func() {
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		server.onQuery("VehiclesType", "", status(401))

		_, err := acct.Vehicles(ctx)
		Expect(protocol.IsAuthentication(err)).To(BeTrue())
		Expect(server.count("VehiclesType")).To(Equal(2))
		Expect(server.count(loginPassword)).To(Equal(2))
	})

	It("does not retry other failures", func() {
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		server.onQuery("VehiclesType", "", status(500))

		_, err := acct.Vehicles(ctx)
		Expect(protocol.IsCommunication(err)).To(BeTrue())
		Expect(server.count("VehiclesType")).To(Equal(1))
		Expect(server.count(loginPassword)).To(Equal(1))
	})

	It("logs in again once a JWT bearer token expires", func() {
		expiry := server.clock.Now().Add(time.Hour)
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		}).SignedString([]byte("test"))
		Expect(err).NotTo(HaveOccurred())
		server.on(loginPassword, PasswordLoginURL, tokenReply(token), tokenReply("opaque"))
		server.onQuery("VehiclesType", "", listReply())

		_, err = acct.Vehicles(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(acct.HasToken()).To(BeTrue())

		server.clock.Step(2 * time.Hour)
		Expect(acct.HasToken()).To(BeFalse())
		_, err = acct.Vehicles(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(server.count(loginPassword)).To(Equal(2))
		Expect(server.count("VehiclesType")).To(Equal(2))
		Expect(server.last(APIURL).Header.Get("Authorization")).To(Equal("Bearer opaque"))
	})

	It("registers a device and returns its token", func() {
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		server.on(register, RegisterDeviceURL, jsonReply(map[string]string{"deviceToken": "device-token"}))

		token, err := acct.DeviceToken(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(token).To(Equal("device-token"))

		request := server.last(RegisterDeviceURL)
		Expect(request.Body).To(Equal(map[string]interface{}{"deviceName": DeviceName, "deviceModel": DeviceName}))
		Expect(request.Header.Get("Authorization")).To(Equal("Bearer bearer"))
		Expect(request.Header.Get("X-App-Version")).To(Equal(AppVersion))
	})

	It("fails registration when no device token is issued", func() {
		server.on(loginPassword, PasswordLoginURL, tokenReply("bearer"))
		server.on(register, RegisterDeviceURL, jsonReply(map[string]string{}))

		_, err := acct.DeviceToken(ctx)
		Expect(protocol.IsAuthentication(err)).To(BeTrue())
	})

	It("requires a password to register a device", func() {
		acct = server.account(Credentials{DeviceToken: "device"})
		_, err := acct.DeviceToken(ctx)
		Expect(protocol.IsAuthentication(err)).To(BeTrue())
		Expect(server.mock.GetTotalCallCount()).To(Equal(0))
	})
})

var _ = Describe("tokenExpired", func() {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sign := func(claims jwt.RegisteredClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
		Expect(err).NotTo(HaveOccurred())
		return token
	}

	It("treats opaque tokens as valid", func() {
		Expect(tokenExpired("opaque", now)).To(BeFalse())
	})

	It("treats JWTs without exp as valid", func() {
		Expect(tokenExpired(sign(jwt.RegisteredClaims{Subject: "x"}), now)).To(BeFalse())
	})

	It("compares exp with the current time", func() {
		Expect(tokenExpired(sign(jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))}), now)).To(BeFalse())
		Expect(tokenExpired(sign(jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now)}), now)).To(BeTrue())
	})
})
