// Package api holds the request and response shapes shared by the gRPC and
// HTTP transports, and the mapping of service errors onto them.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/signal-audit/internal/decisions"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
	"github.com/danielpatrickdp/signal-audit/internal/scan"
	"github.com/danielpatrickdp/signal-audit/internal/state"
)

// #region service

// Service is the part of orchestrator.Service the transports call.
type Service interface {
	Track(ctx context.Context, name string, value float64) (state.Snapshot, error)
	Scan(ctx context.Context, url, doc string) (scan.Result, state.Snapshot, error)
	CreateDecision(ctx context.Context, nd orchestrator.NewDecision) (decisions.Decision, state.Snapshot, error)
	System(ctx context.Context) (orchestrator.SystemView, error)
	Reset(ctx context.Context) (state.Snapshot, error)
}

// #endregion service

// #region requests

// TrackRequest records one event.
type TrackRequest struct {
	Event string  `json:"event"`
	Value float64 `json:"value"`
}

// ScanRequest scans url, or the supplied html when present.
type ScanRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"`
	HTML string `json:"html,omitempty"`
}

// ErrUnsupportedScanType rejects scan types other than web.
var ErrUnsupportedScanType = errors.New("unsupported scan type")

// Validate defaults an empty type to web.
func (r *ScanRequest) Validate() error {
	if r.Type == "" {
		r.Type = scan.TypeWeb
	}
	if r.Type != scan.TypeWeb {
		return fmt.Errorf("%w: %q", ErrUnsupportedScanType, r.Type)
	}
	if r.URL == "" {
		return scan.ErrEmptyURL
	}
	return nil
}

// #endregion requests

// #region responses

// SystemResponse wraps the read model after a mutating call. Persisted is
// false when the store rejected the snapshot; the state is still current.
type SystemResponse struct {
	Success   bool                    `json:"success"`
	Persisted bool                    `json:"persisted"`
	System    orchestrator.SystemView `json:"system"`
}

// ScanResponse carries the scan result and the state after ingesting it.
type ScanResponse struct {
	SystemResponse
	Result scan.Result `json:"result"`
}

// DecisionResponse carries the created decision.
type DecisionResponse struct {
	SystemResponse
	Decision decisions.Decision `json:"decision"`
}

// NewSystemResponse builds the response for a mutating call. err is the
// service error; only ErrPersist is tolerated.
func NewSystemResponse(snap state.Snapshot, err error) SystemResponse {
	return SystemResponse{
		Success:   true,
		Persisted: err == nil,
		System:    orchestrator.View(snap),
	}
}

// #endregion responses

// #region errors

// ErrorKind is the transport-neutral class of a service error.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInvalid
	KindUpstream
	KindInternal
)

// Classify maps err to an ErrorKind. ErrPersist is KindNone: the caller
// still gets the evaluated state.
func Classify(err error) ErrorKind {
	switch {
	case err == nil, errors.Is(err, orchestrator.ErrPersist):
		return KindNone
	case errors.Is(err, orchestrator.ErrEventNameRequired),
		errors.Is(err, orchestrator.ErrInvalidDecision),
		errors.Is(err, scan.ErrEmptyURL),
		errors.Is(err, ErrUnsupportedScanType):
		return KindInvalid
	case errors.Is(err, orchestrator.ErrScanFailed):
		return KindUpstream
	default:
		return KindInternal
	}
}

// #endregion errors
