package account

import (
	"context"
	"net/http"

	"github.com/goconnect-io/goconnect/internal/log"
	"github.com/goconnect-io/goconnect/pkg/protocol"
	"github.com/goconnect-io/goconnect/pkg/vehicle"
)

type graphQLRequest struct {
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
	Query         string                 `json:"query"`
}

// requestJSON sends an authenticated request, logging in first if no token is held. If the backend
// rejects the token, requestJSON logs in again and retries exactly once.
func (a *Account) requestJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	token := a.currentToken()
	if token == "" {
		if err := a.Login(ctx); err != nil {
			return err
		}
		token = a.currentToken()
	}

	err := a.transport.Do(ctx, http.MethodPost, url, body, requestHeader(true, token), out)
	if !protocol.IsAuthentication(err) {
		return err
	}

	log.Info("Bearer token rejected, logging in again")
	a.clearToken(token)
	if err := a.Login(ctx); err != nil {
		return err
	}
	return a.transport.Do(ctx, http.MethodPost, url, body, requestHeader(true, a.currentToken()), out)
}

// Vehicles lists the vehicles visible to the account. Each record only carries a few identifying
// fields.
func (a *Account) Vehicles(ctx context.Context) (*vehicle.ListResponse, error) {
	query := graphQLRequest{
		OperationName: "VehiclesType",
		Variables:     map[string]interface{}{},
		Query:         vehiclesQuery,
	}
	var reply vehicle.ListResponse
	if err := a.requestJSON(ctx, APIURL+"?operationName=VehiclesType", &query, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// VehicleDetails fetches the complete record of a vehicle, including brandContactInfo.
func (a *Account) VehicleDetails(ctx context.Context, id string) (*vehicle.DetailResponse, error) {
	query := graphQLRequest{
		OperationName: "Vehicle",
		Variables:     map[string]interface{}{"id": id},
		Query:         vehicleDetailsQuery,
	}
	var reply vehicle.DetailResponse
	if err := a.requestJSON(ctx, APIURL+"?operationName=Vehicle&screenName=Overview", &query, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// VehicleSystemOverview fetches live telemetry and open leads of a vehicle.
func (a *Account) VehicleSystemOverview(ctx context.Context, id string) (*vehicle.DetailResponse, error) {
	query := graphQLRequest{
		OperationName: "VehicleSystemOverview",
		Variables:     map[string]interface{}{"id": id, "statuses": []string{"open"}},
		Query:         vehicleSystemOverviewQuery,
	}
	var reply vehicle.DetailResponse
	url := APIURL + "?operationName=VehicleSystemOverview&screenName=Overview"
	if err := a.requestJSON(ctx, url, &query, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// RegisterDevice registers this client as a device of the account. The reply carries a
// deviceToken that can be used instead of a password in later sessions.
func (a *Account) RegisterDevice(ctx context.Context) (map[string]interface{}, error) {
	body := map[string]string{"deviceName": DeviceName, "deviceModel": DeviceName}
	var reply map[string]interface{}
	if err := a.requestJSON(ctx, RegisterDeviceURL, body, &reply); err != nil {
		return nil, err
	}
	if reply == nil {
		reply = map[string]interface{}{}
	}
	return reply, nil
}

// DeviceToken logs in with the account's email and password, registers a device and returns the
// device token issued for it.
func (a *Account) DeviceToken(ctx context.Context) (string, error) {
	if !a.credentials.HasPassword() {
		return "", protocol.NewError(protocol.KindAuthentication, "email and password are required to register a device")
	}
	if err := a.loginWithPassword(ctx); err != nil {
		return "", err
	}
	reply, err := a.RegisterDevice(ctx)
	if err != nil {
		return "", err
	}
	token, _ := reply["deviceToken"].(string)
	if token == "" {
		return "", protocol.NewError(protocol.KindAuthentication, "failed to obtain device token")
	}
	return token, nil
}
