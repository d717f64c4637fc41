package envoy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	enphase "enphase-go"
)

func TestProduction(t *testing.T) {
	c, _ := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/production", r.URL.Path)
		w.Write([]byte(`{"wattHoursLifetime": 98765432, "wattHoursSevenDays": 123456, "wattHoursToday": 12345, "wattsNow": 2500}`))
	}))
	authenticate(t, c, freshToken(t))

	reading, err := c.Production(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 98765432, reading.WattHoursLifetime)
	require.EqualValues(t, 123456, reading.WattHoursSevenDays)
	require.EqualValues(t, 12345, reading.WattHoursToday)
	require.EqualValues(t, 2500, reading.WattsNow)
}

func TestConsumption(t *testing.T) {
	c, _ := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/consumption", r.URL.Path)
		w.Write([]byte(`{"wattHoursToday": 8000, "wattsNow": 1100}`))
	}))
	authenticate(t, c, freshToken(t))

	reading, err := c.Consumption(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 8000, reading.WattHoursToday)
	require.EqualValues(t, 1100, reading.WattsNow)
}

func TestInverters(t *testing.T) {
	c, _ := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/production/inverters", r.URL.Path)
		w.Write([]byte(`[
			{"serialNumber":"482125000001","lastReportDate":1735689600,"devType":1,"lastReportWatts":240,"maxReportWatts":365},
			{"serialNumber":"482125000002","lastReportDate":1735689600,"devType":1,"lastReportWatts":251,"maxReportWatts":370}
		]`))
	}))
	authenticate(t, c, freshToken(t))

	inverters, err := c.Inverters(context.Background())
	require.NoError(t, err)
	require.Len(t, inverters, 2)
	require.Equal(t, "482125000001", inverters[0].SerialNumber)
	require.Equal(t, 491, TotalReportedWatts(inverters))
}

func TestSystem(t *testing.T) {
	c, _ := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/home.json", r.URL.Path)
		w.Write([]byte(`{
			"software_build_epoch": 1719000000,
			"timezone": "Europe/Amsterdam",
			"current_date": "08/25/2026",
			"current_time": "10:15",
			"tariff": "single_rate",
			"alerts": [],
			"update_status": "satisfied",
			"network": {"web_comm": true, "ever_reported_to_enlighten": true, "last_enlighten_rpt_time": 1756109000, "primary_interface": "eth0"}
		}`))
	}))
	authenticate(t, c, freshToken(t))

	status, err := c.System(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Europe/Amsterdam", status.Timezone)
	require.True(t, status.Network.WebComm)
	require.Equal(t, "eth0", status.Network.PrimaryInterface)
}

func TestGetPowerState(t *testing.T) {
	c, _ := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ivp/mod/SN123/mode/power", r.URL.Path)
		w.Write([]byte(`{"powerForcedOff": true}`))
	}))
	authenticate(t, c, freshToken(t))

	state, err := c.GetPowerState(context.Background(), "SN123")
	require.NoError(t, err)
	require.Equal(t, PowerOff, state)
}

func TestSetPowerStateConfirmed(t *testing.T) {
	c, _ := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/ivp/mod/SN123/mode/power", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload struct {
			Length int   `json:"length"`
			Arr    []int `json:"arr"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, 1, payload.Length)
		require.Equal(t, []int{0}, payload.Arr)
		w.Write([]byte(`{"state":"on"}`))
	}))
	authenticate(t, c, freshToken(t))

	state, err := c.SetPowerState(context.Background(), "SN123", PowerOn)
	require.NoError(t, err)
	require.Equal(t, PowerOn, state)
}

func TestSetPowerStateNoContent(t *testing.T) {
	c, _ := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Arr []int `json:"arr"`
		}
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, []int{1}, payload.Arr, "off maps to 1 on the wire")
		w.WriteHeader(http.StatusNoContent)
	}))
	authenticate(t, c, freshToken(t))

	state, err := c.SetPowerState(context.Background(), "SN123", PowerOff)
	require.NoError(t, err)
	require.Equal(t, PowerOff, state)
}

func TestSetPowerStateServerErrorNoRetry(t *testing.T) {
	var writes atomic.Int32
	c, _ := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {
		writes.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	authenticate(t, c, freshToken(t))

	_, err := c.SetPowerState(context.Background(), "SN123", PowerOn)
	var te *enphase.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, enphase.TransportRetriable, te.Kind)
	require.EqualValues(t, 1, writes.Load(), "power writes are never retried")
}

func TestPowerStateEagerSerialValidation(t *testing.T) {
	c, calls := newGateway(t, authOK(func(w http.ResponseWriter, r *http.Request) {}))
	authenticate(t, c, freshToken(t))
	before := calls.Load()

	_, err := c.SetPowerState(context.Background(), "", PowerOn)
	require.Error(t, err)
	_, err = c.GetPowerState(context.Background(), "")
	require.Error(t, err)
	require.Equal(t, before, calls.Load(), "empty serials must not reach the network")
}

func TestPowerStateStringAndParse(t *testing.T) {
	require.Equal(t, "on", PowerOn.String())
	require.Equal(t, "off", PowerOff.String())

	state, err := ParsePowerState("off")
	require.NoError(t, err)
	require.Equal(t, PowerOff, state)
	_, err = ParsePowerState("standby")
	require.Error(t, err)
}
