package envoy

import (
	"fmt"

	"github.com/samber/lo"
)

// PowerState is the closed set of device power modes. Keeping it an
// enumerated type stops invalid modes from ever reaching the wire.
type PowerState int

const (
	PowerOn PowerState = iota
	PowerOff
)

// payloadValue is the array value the power-mode endpoint expects: 0 forces
// power on, 1 forces it off.
func (s PowerState) payloadValue() int {
	if s == PowerOff {
		return 1
	}
	return 0
}

func (s PowerState) String() string {
	return lo.Ternary(s == PowerOff, "off", "on")
}

// ParsePowerState maps a wire value onto the enum.
func ParsePowerState(v string) (PowerState, error) {
	switch v {
	case "on":
		return PowerOn, nil
	case "off":
		return PowerOff, nil
	default:
		return PowerOn, fmt.Errorf("envoy: unknown power state %q", v)
	}
}

// ProductionReading is the production snapshot from /api/v1/production.
type ProductionReading struct {
	WattHoursLifetime  int64 `json:"wattHoursLifetime"`
	WattHoursSevenDays int64 `json:"wattHoursSevenDays"`
	WattHoursToday     int64 `json:"wattHoursToday"`
	WattsNow           int64 `json:"wattsNow"`
}

// ConsumptionReading is the consumption snapshot from /api/v1/consumption.
type ConsumptionReading struct {
	WattHoursLifetime  int64 `json:"wattHoursLifetime"`
	WattHoursSevenDays int64 `json:"wattHoursSevenDays"`
	WattHoursToday     int64 `json:"wattHoursToday"`
	WattsNow           int64 `json:"wattsNow"`
}

// Inverter is one microinverter's report from /api/v1/production/inverters.
type Inverter struct {
	SerialNumber    string `json:"serialNumber" validate:"required"`
	LastReportDate  int64  `json:"lastReportDate"`
	DevType         int    `json:"devType"`
	LastReportWatts int    `json:"lastReportWatts"`
	MaxReportWatts  int    `json:"maxReportWatts"`
}

// TotalReportedWatts sums the last reported output across inverters.
func TotalReportedWatts(inverters []Inverter) int {
	return lo.SumBy(inverters, func(i Inverter) int { return i.LastReportWatts })
}

// SystemStatus is the gateway status snapshot from /home.json.
type SystemStatus struct {
	SoftwareBuildEpoch int64         `json:"software_build_epoch"`
	Timezone           string        `json:"timezone"`
	CurrentDate        string        `json:"current_date"`
	CurrentTime        string        `json:"current_time"`
	Tariff             string        `json:"tariff"`
	Alerts             []string      `json:"alerts"`
	UpdateStatus       string        `json:"update_status"`
	Network            NetworkStatus `json:"network"`
}

// NetworkStatus is the network block of the system snapshot.
type NetworkStatus struct {
	WebComm                 bool   `json:"web_comm"`
	EverReportedToEnlighten bool   `json:"ever_reported_to_enlighten"`
	LastEnlightenReport     int64  `json:"last_enlighten_rpt_time"`
	PrimaryInterface        string `json:"primary_interface"`
}

// powerStatus is the wire shape of the power-mode read. powerForcedOff true
// means production is disabled.
type powerStatus struct {
	PowerForcedOff bool `json:"powerForcedOff"`
}

// powerAck is the optional body some firmware versions return from the
// power-mode write; newer firmware answers 204 with no body.
type powerAck struct {
	State string `json:"state"`
}
