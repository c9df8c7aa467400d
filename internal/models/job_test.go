package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wilsonfonseca/golem/internal/models"
)

func TestTranscodeParamsJSONBRoundTrip(t *testing.T) {
	params := models.TranscodeParams{
		VideoCodec:   "mpeg2video",
		VideoBitrate: "1500k",
		AudioCodec:   "mp3",
		Width:        160,
		Height:       120,
		FrameRate:    25,
	}

	value, err := params.Value()
	require.NoError(t, err)

	var scanned models.TranscodeParams
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, params, scanned)

	// pgx hands jsonb back as text in some code paths
	var fromString models.TranscodeParams
	require.NoError(t, fromString.Scan(string(value.([]byte))))
	assert.Equal(t, params, fromString)
}

func TestTranscodeParamsScanNil(t *testing.T) {
	var params models.TranscodeParams
	require.NoError(t, params.Scan(nil))
	assert.Equal(t, models.TranscodeParams{}, params)
}

func TestTranscodeParamsScanRejectsUnknownType(t *testing.T) {
	var params models.TranscodeParams
	assert.Error(t, params.Scan(42))
}
