package envoy

import (
	"context"
	"fmt"
	"net/http"

	enphase "enphase-go"
)

// Production returns the current production snapshot.
func (c *Client) Production(ctx context.Context) (ProductionReading, error) {
	return Call[ProductionReading](ctx, c, Endpoint{
		Method:     http.MethodGet,
		Path:       "/api/v1/production",
		Idempotent: true,
	})
}

// Consumption returns the current consumption snapshot. Only metered
// installations report consumption.
func (c *Client) Consumption(ctx context.Context) (ConsumptionReading, error) {
	return Call[ConsumptionReading](ctx, c, Endpoint{
		Method:     http.MethodGet,
		Path:       "/api/v1/consumption",
		Idempotent: true,
	})
}

// Inverters returns the per-microinverter production reports.
func (c *Client) Inverters(ctx context.Context) ([]Inverter, error) {
	return Call[[]Inverter](ctx, c, Endpoint{
		Method:     http.MethodGet,
		Path:       "/api/v1/production/inverters",
		Idempotent: true,
	})
}

// System returns the gateway status snapshot.
func (c *Client) System(ctx context.Context) (SystemStatus, error) {
	return Call[SystemStatus](ctx, c, Endpoint{
		Method:     http.MethodGet,
		Path:       "/home.json",
		Idempotent: true,
	})
}

// GetPowerState reads the power mode of the device with the given serial.
func (c *Client) GetPowerState(ctx context.Context, serial string) (PowerState, error) {
	if serial == "" {
		return PowerOn, fmt.Errorf("envoy: serial must not be empty")
	}
	status, err := Call[powerStatus](ctx, c, Endpoint{
		Method:     http.MethodGet,
		Path:       powerModePath(serial),
		Idempotent: true,
	})
	if err != nil {
		return PowerOn, err
	}
	if status.PowerForcedOff {
		return PowerOff, nil
	}
	return PowerOn, nil
}

// SetPowerState forces the device with the given serial on or off and
// returns the confirmed state. The write is not idempotent at the policy
// level and is never retried automatically; callers must also not issue
// duplicate concurrent writes to the same device.
func (c *Client) SetPowerState(ctx context.Context, serial string, state PowerState) (PowerState, error) {
	if serial == "" {
		return state, fmt.Errorf("envoy: serial must not be empty")
	}
	body := fmt.Sprintf(`{"length":1,"arr":[%d]}`, state.payloadValue())
	ack, err := Call[powerAck](ctx, c, Endpoint{
		Method: http.MethodPut,
		Path:   powerModePath(serial),
		Body:   []byte(body),
		// The firmware expects this content type even though the payload is
		// JSON-shaped.
		ContentType: "application/x-www-form-urlencoded; charset=UTF-8",
		Idempotent:  false,
	})
	if err != nil {
		return state, err
	}
	if ack.State == "" {
		// 204 No Content: the gateway applied the requested state.
		return state, nil
	}
	confirmed, perr := ParsePowerState(ack.State)
	if perr != nil {
		return state, &enphase.DecodeError{Reason: "unrecognized power state in acknowledgement", Err: perr}
	}
	return confirmed, nil
}

func powerModePath(serial string) string {
	return fmt.Sprintf("/ivp/mod/%s/mode/power", serial)
}
