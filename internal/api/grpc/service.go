// Package grpcapi exposes the audit service over gRPC. Messages are
// google.protobuf.Struct values carrying the same JSON documents as the HTTP
// API, so no generated stubs are needed.
package grpcapi

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/signal-audit/internal/api"
	"github.com/danielpatrickdp/signal-audit/internal/orchestrator"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "audit.v1.AuditService"

// Full method names.
const (
	MethodTrack          = "/" + ServiceName + "/Track"
	MethodScan           = "/" + ServiceName + "/Scan"
	MethodCreateDecision = "/" + ServiceName + "/CreateDecision"
	MethodGetSystem      = "/" + ServiceName + "/GetSystem"
	MethodReset          = "/" + ServiceName + "/Reset"
)

// AuditServer is the server API for the audit service.
type AuditServer interface {
	Track(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Scan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateDecision(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSystem(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Reset(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// #region handlers

// Handler implements AuditServer over an api.Service.
type Handler struct {
	svc    api.Service
	logger *slog.Logger
}

// NewHandler returns a handler. A nil logger uses slog.Default().
func NewHandler(svc api.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Track records one event.
func (h *Handler) Track(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.TrackRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	snap, err := h.svc.Track(ctx, req.Event, req.Value)
	if err := h.toStatus("track", err); err != nil {
		return nil, err
	}
	return toStruct(api.NewSystemResponse(snap, err))
}

// Scan scans a page and ingests the result.
func (h *Handler) Scan(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req api.ScanRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, snap, err := h.svc.Scan(ctx, req.URL, req.HTML)
	if err := h.toStatus("scan", err); err != nil {
		return nil, err
	}
	return toStruct(api.ScanResponse{SystemResponse: api.NewSystemResponse(snap, err), Result: res})
}

// CreateDecision adds a decision.
func (h *Handler) CreateDecision(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req orchestrator.NewDecision
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	dec, snap, err := h.svc.CreateDecision(ctx, req)
	if err := h.toStatus("create decision", err); err != nil {
		return nil, err
	}
	return toStruct(api.DecisionResponse{SystemResponse: api.NewSystemResponse(snap, err), Decision: dec})
}

// GetSystem returns the read model.
func (h *Handler) GetSystem(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	view, err := h.svc.System(ctx)
	if err := h.toStatus("get system", err); err != nil {
		return nil, err
	}
	return toStruct(view)
}

// Reset reseeds the system from the catalog.
func (h *Handler) Reset(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	snap, err := h.svc.Reset(ctx)
	if err := h.toStatus("reset", err); err != nil {
		return nil, err
	}
	return toStruct(api.NewSystemResponse(snap, err))
}

func (h *Handler) toStatus(op string, err error) error {
	switch api.Classify(err) {
	case api.KindNone:
		return nil
	case api.KindInvalid:
		return status.Error(codes.InvalidArgument, err.Error())
	case api.KindUpstream:
		return status.Error(codes.Unavailable, err.Error())
	default:
		h.logger.Error("grpc call failed", "op", op, "error", err)
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion handlers

// #region service-desc

func trackHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unary(srv, ctx, dec, interceptor, MethodTrack, AuditServer.Track)
}

func scanHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unary(srv, ctx, dec, interceptor, MethodScan, AuditServer.Scan)
}

func createDecisionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unary(srv, ctx, dec, interceptor, MethodCreateDecision, AuditServer.CreateDecision)
}

func getSystemHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unary(srv, ctx, dec, interceptor, MethodGetSystem, AuditServer.GetSystem)
}

func resetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return unary(srv, ctx, dec, interceptor, MethodReset, AuditServer.Reset)
}

func unary(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
	method string,
	call func(AuditServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return call(srv.(AuditServer), ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
	handler := func(ctx context.Context, req any) (any, error) {
		return call(srv.(AuditServer), ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes the audit service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Track", Handler: trackHandler},
		{MethodName: "Scan", Handler: scanHandler},
		{MethodName: "CreateDecision", Handler: createDecisionHandler},
		{MethodName: "GetSystem", Handler: getSystemHandler},
		{MethodName: "Reset", Handler: resetHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "audit/v1/audit.proto",
}

// RegisterAuditServer registers srv on s.
func RegisterAuditServer(s grpc.ServiceRegistrar, srv AuditServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// #endregion service-desc
