package broker

import (
	"encoding/json"
	"fmt"
	"time"

	apperrors "option-radar/internal/errors"
	"option-radar/internal/models"
)

// chainResponse is the body of /api/option-chain-indices. Only the
// unfiltered "records" block is used; "filtered" is ignored.
type chainResponse struct {
	Records *chainRecords `json:"records"`
}

type chainRecords struct {
	ExpiryDates     []string             `json:"expiryDates"`
	Data            []models.ChainRecord `json:"data"`
	Timestamp       string               `json:"timestamp"`
	UnderlyingValue *float64             `json:"underlyingValue"`
}

// decodeChain parses a chain body into a snapshot. A body that is not JSON,
// or lacks records, expiryDates or data, is malformed.
func decodeChain(symbol string, body []byte, fetchedAt time.Time) (*models.OptionChainSnapshot, error) {
	var resp chainResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewFetchError(symbol, "decode", 0,
			fmt.Errorf("%w: %v", apperrors.ErrMalformedResponse, err))
	}
	if resp.Records == nil {
		return nil, apperrors.NewFetchError(symbol, "decode", 0,
			fmt.Errorf("%w: missing records", apperrors.ErrMalformedResponse))
	}
	if resp.Records.ExpiryDates == nil {
		return nil, apperrors.NewFetchError(symbol, "decode", 0,
			fmt.Errorf("%w: missing records.expiryDates", apperrors.ErrMalformedResponse))
	}
	if resp.Records.Data == nil {
		return nil, apperrors.NewFetchError(symbol, "decode", 0,
			fmt.Errorf("%w: missing records.data", apperrors.ErrMalformedResponse))
	}

	return &models.OptionChainSnapshot{
		Symbol:      symbol,
		Timestamp:   resp.Records.Timestamp,
		ExpiryDates: resp.Records.ExpiryDates,
		Records:     resp.Records.Data,
		FetchedAt:   fetchedAt,
	}, nil
}
