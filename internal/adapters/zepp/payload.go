package zepp

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/bnema/zepp-steps-cli/internal/domain"
)

// Fixed blobs lifted from a real band sync. The remote validates their shape
// but not their content, so every upload reuses them verbatim.
const (
	heartRateBlob = "/////0v///9W////S////17///9J/2n//0v/////////R/////9F/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+/v7+"

	minuteValueBlob = "UA8AUBQAUAwAUBoAUAEAYCcAUBkAUB4AUBgAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAAfgAA"
)

const (
	dailyGoal        = 8000
	payloadTimezone  = "28800"
	sleepOffset      = 28800 // seconds; pins the zeroed sleep block to local midnight
	lastSyncDataTime = "1597306380"
	lastDeviceID     = "DA932FFFFE8816E7"
)

// Field order in these structs mirrors the key order the mobile app emits.
// encoding/json preserves declaration order, so keep it stable.

type minuteSeries struct {
	Start int    `json:"start"`
	Stop  int    `json:"stop"`
	Value string `json:"value"`
}

type sleepSummary struct {
	Start     int64 `json:"st"`
	End       int64 `json:"ed"`
	Deep      int   `json:"dp"`
	Light     int   `json:"lt"`
	Wake      int   `json:"wk"`
	UserStart int   `json:"usrSt"`
	UserEnd   int   `json:"usrEd"`
	WakeCount int   `json:"wc"`
	IS        int   `json:"is"`
	LB        int   `json:"lb"`
	TO        int   `json:"to"`
	DT        int   `json:"dt"`
	RestHR    int   `json:"rhr"`
	Score     int   `json:"ss"`
}

type stepSummary struct {
	Total    int   `json:"ttl"`
	Distance int   `json:"dis"`
	Calories int   `json:"cal"`
	Walk     int   `json:"wk"`
	Run      int   `json:"rn"`
	RunDist  int   `json:"runDist"`
	RunCal   int   `json:"runCal"`
	Stage    []int `json:"stage"`
}

type daySummary struct {
	Version  int          `json:"v"`
	Sleep    sleepSummary `json:"slp"`
	Steps    stepSummary  `json:"stp"`
	Goal     int          `json:"goal"`
	Timezone string       `json:"tz"`
}

type dayRecord struct {
	HeartRate string         `json:"data_hr"`
	Date      string         `json:"date"`
	Data      []minuteSeries `json:"data"`
	Summary   string         `json:"summary"`
	Source    int            `json:"source"`
	Type      int            `json:"type"`
}

// encodeBandData builds the percent-encoded one-day telemetry blob for the
// given step total. Distance and calories are derived so the figures stay
// mutually consistent; everything else is fixed filler the remote accepts.
func encodeBandData(steps int, date string, now time.Time) (string, error) {
	summary := daySummary{
		Version: 6,
		Sleep: sleepSummary{
			Start:     now.Unix() - sleepOffset,
			End:       now.Unix() - sleepOffset,
			UserStart: -1440,
			UserEnd:   -1440,
		},
		Steps: stepSummary{
			Total:    steps,
			Distance: domain.DistanceFor(steps),
			Calories: domain.CaloriesFor(steps),
			Stage:    []int{},
		},
		Goal:     dailyGoal,
		Timezone: payloadTimezone,
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("encode day summary: %w", err)
	}

	records := []dayRecord{{
		HeartRate: heartRateBlob,
		Date:      date,
		Data: []minuteSeries{{
			Start: 0,
			Stop:  1439,
			Value: minuteValueBlob,
		}},
		Summary: string(summaryJSON),
		Source:  24,
		Type:    0,
	}}

	payload, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode band data: %w", err)
	}

	return url.QueryEscape(string(payload)), nil
}

// encodeSubmissionForm renders the full form body for a telemetry upload.
// last_sync_data_time and last_deviceid are fixed values the remote has
// accepted for years; only userid and the embedded data_json vary.
func encodeSubmissionForm(userID string, steps int, date string, now time.Time) (string, error) {
	dataJSON, err := encodeBandData(steps, date, now)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"userid=%s&last_sync_data_time=%s&device_type=0&last_deviceid=%s&data_json=%s",
		url.QueryEscape(userID), lastSyncDataTime, lastDeviceID, dataJSON,
	), nil
}
