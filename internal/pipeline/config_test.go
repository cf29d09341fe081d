package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/refdata-normalizer/internal/config"
	"github.com/rickgao/refdata-normalizer/internal/refdata"
)

func TestFromConfig(t *testing.T) {
	cfg := &config.NormalizerConfig{
		Service: config.ServiceConfig{
			Host:         "blp-gateway",
			Port:         8194,
			Service:      "//blp/refdata",
			EventTimeout: 5 * time.Minute,
		},
		Database: config.DatabaseConfig{
			SecuritiesTable: "dbo.Securities",
			PricesTable:     "dbo.Prices",
		},
		Request: config.RequestConfig{
			Fields:     []string{"PX_LAST", "BID", "ASK", "TICKER"},
			BulkFields: []string{"CHAIN_TICKERS"},
			Overrides: []config.OverrideConfig{
				{FieldID: "CHAIN_POINTS_OVRD", Value: 5},
			},
		},
	}

	run, sess, err := FromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "dbo.Securities", run.SecuritiesTable)
	assert.Equal(t, "dbo.Prices", run.PricesTable)
	assert.Equal(t, []string{"PX_LAST", "BID", "ASK", "TICKER"}, run.Fields.Scalar)
	assert.Equal(t, refdata.OverrideSpec{{FieldID: "CHAIN_POINTS_OVRD", Value: refdata.Int(5)}}, run.Overrides)

	assert.Equal(t, "ws://blp-gateway:8194/", sess.URL())
	assert.Equal(t, 5*time.Minute, sess.EventTimeout)
	assert.Equal(t, 10*time.Second, sess.HandshakeTimeout)
}

func TestFromConfig_BadOverride(t *testing.T) {
	cfg := &config.NormalizerConfig{
		Request: config.RequestConfig{
			Overrides: []config.OverrideConfig{{FieldID: "CHAIN_POINTS_OVRD", Value: 2.5}},
		},
	}

	_, _, err := FromConfig(cfg)
	assert.ErrorContains(t, err, "request.overrides[0].value")
}
