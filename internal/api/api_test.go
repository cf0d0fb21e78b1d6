package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

func TestClassify(t *testing.T) {
	wrap := func(sentinel error) error { return fmt.Errorf("%w: detail", sentinel) }

	assert.Equal(t, KindNone, Classify(nil))
	assert.Equal(t, KindNone, Classify(wrap(orchestrator.ErrPersist)))
	assert.Equal(t, KindInvalid, Classify(orchestrator.ErrEventNameRequired))
	assert.Equal(t, KindInvalid, Classify(wrap(orchestrator.ErrInvalidDecision)))
	assert.Equal(t, KindInvalid, Classify(scan.ErrEmptyURL))
	assert.Equal(t, KindInvalid, Classify(wrap(ErrUnsupportedScanType)))
	assert.Equal(t, KindUpstream, Classify(wrap(orchestrator.ErrScanFailed)))
	assert.Equal(t, KindInternal, Classify(errors.New("boom")))
}

func TestScanRequestValidate(t *testing.T) {
	req := ScanRequest{URL: "acme.test"}
	assert.NoError(t, req.Validate())
	assert.Equal(t, scan.TypeWeb, req.Type)

	req = ScanRequest{URL: "acme.test", Type: "social"}
	assert.ErrorIs(t, req.Validate(), ErrUnsupportedScanType)

	req = ScanRequest{Type: "web"}
	assert.ErrorIs(t, req.Validate(), scan.ErrEmptyURL)
}

func TestNewSystemResponse(t *testing.T) {
	resp := NewSystemResponse(state.Snapshot{}, orchestrator.ErrPersist)
	assert.True(t, resp.Success)
	assert.False(t, resp.Persisted)
	assert.NotNil(t, resp.System.Decisions)

	resp = NewSystemResponse(state.Snapshot{}, nil)
	assert.True(t, resp.Persisted)
}
