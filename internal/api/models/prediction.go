package models

import (
	"github.com/aqisense/aqisense/internal/prediction"
)

// PredictionRequest is the body of POST /v1/predictions. Pollutant
// fields are optional; omitted ones are either auto-filled or imputed
// with training means.
type PredictionRequest struct {
	Date               string   `json:"date"`
	PM25               *float64 `json:"pm25"`
	PM10               *float64 `json:"pm10"`
	O3                 *float64 `json:"o3"`
	NO2                *float64 `json:"no2"`
	SO2                *float64 `json:"so2"`
	CO                 *float64 `json:"co"`
	Country            string   `json:"country"`
	Loc                string   `json:"loc"`
	AutoFillPollutants bool     `json:"auto_fill_pollutants"`
}

// Input converts the request to a domain prediction input.
func (r PredictionRequest) Input() prediction.Input {
	return prediction.Input{
		Date: r.Date,
		Pollutants: prediction.Pollutants{
			PM25: r.PM25,
			PM10: r.PM10,
			O3:   r.O3,
			NO2:  r.NO2,
			SO2:  r.SO2,
			CO:   r.CO,
		},
		Country:  r.Country,
		City:     r.Loc,
		AutoFill: r.AutoFillPollutants,
	}
}

// PredictionHistory is the response of GET /v1/predictions/history.
type PredictionHistory struct {
	Predictions []*prediction.StoredPrediction `json:"predictions"`
	TotalCount  int                            `json:"total_count"`
	Limit       int                            `json:"limit"`
	Skip        int                            `json:"skip"`
}
