// Package grpcapi serves the ledger boundary to internal collaborators over
// gRPC. Messages travel as JSON, so the service is described by a hand
// written ServiceDesc instead of generated stubs.
package grpcapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/ledger"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/metrics"
	ledgersvc "github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ledger.v1.Ledger"

const (
	methodSubmit      = "/" + ServiceName + "/Submit"
	methodGetBalance  = "/" + ServiceName + "/GetBalance"
	methodListEntries = "/" + ServiceName + "/ListEntries"
)

// Ledger is the part of the ledger service exposed over gRPC.
type Ledger interface {
	Submit(ctx context.Context, req ledgersvc.SubmitRequest) (*ledgersvc.Result, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	ListEntries(ctx context.Context, accountID uuid.UUID, cursor string, limit int) (*ledgersvc.EntryPage, error)
}

// LedgerServer is implemented by Server and registered through ServiceDesc.
type LedgerServer interface {
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	GetBalance(context.Context, *GetBalanceRequest) (*GetBalanceResponse, error)
	ListEntries(context.Context, *ListEntriesRequest) (*ListEntriesResponse, error)
}

// Server adapts the ledger service to LedgerServer.
type Server struct {
	ledger Ledger
	logger *slog.Logger
}

func NewServer(l Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ledger: l, logger: logger.With("context", "grpc")}
}

func (s *Server) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResponse, error) {
	accountID, err := parseAccountID(req.AccountID)
	if err != nil {
		return nil, err
	}
	res, err := s.ledger.Submit(ctx, ledgersvc.SubmitRequest{
		AccountID:      accountID,
		Delta:          req.Delta,
		Reason:         ledger.Reason(req.Reason),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &SubmitResponse{
		EntryID:    res.Entry.ID,
		NewBalance: res.Entry.BalanceAfter,
		Replayed:   res.Replayed,
	}, nil
}

func (s *Server) GetBalance(ctx context.Context, req *GetBalanceRequest) (*GetBalanceResponse, error) {
	accountID, err := parseAccountID(req.AccountID)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.GetBalance(ctx, accountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetBalanceResponse{Balance: balance}, nil
}

func (s *Server) ListEntries(ctx context.Context, req *ListEntriesRequest) (*ListEntriesResponse, error) {
	accountID, err := parseAccountID(req.AccountID)
	if err != nil {
		return nil, err
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit must not be negative")
	}
	page, err := s.ledger.ListEntries(ctx, accountID, req.Cursor, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ListEntriesResponse{Entries: make([]Entry, 0, len(page.Entries)), NextCursor: page.NextCursor}
	for _, e := range page.Entries {
		out.Entries = append(out.Entries, toEntry(e))
	}
	return out, nil
}

func parseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.NotFound, ledger.ErrAccountNotFound.Error())
	}
	return id, nil
}

func toEntry(e *dto.EntryRead) Entry {
	return Entry{
		EntryID:      e.ID,
		AccountID:    e.AccountID.String(),
		Sequence:     e.Sequence,
		Delta:        e.Delta,
		BalanceAfter: e.BalanceAfter,
		Reason:       e.Reason,
		CreatedAt:    e.CreatedAt,
	}
}

// LoggingInterceptor logs and counts every unary call with its code and
// duration.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		metrics.GRPCRequests.WithLabelValues(info.FullMethod, code.String()).Inc()
		metrics.GRPCRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		level := slog.LevelInfo
		if code == codes.Internal || code == codes.Unknown {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "gRPC call",
			"method", info.FullMethod,
			"code", code.String(),
			"duration", time.Since(start),
		)
		return resp, err
	}
}

// NewGRPCServer builds a grpc.Server with the ledger service registered.
func NewGRPCServer(l Ledger, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	srv := NewServer(l, logger)
	opts = append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(LoggingInterceptor(srv.logger)),
		// Clients built by Dial ping every 10s, idle or not.
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterLedgerServer(s, srv)
	return s
}

// RegisterLedgerServer registers srv on s.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitRequest)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if interceptor == nil {
		return srv.(LedgerServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSubmit}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).Submit(ctx, req.(*SubmitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getBalanceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBalanceRequest)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if interceptor == nil {
		return srv.(LedgerServer).GetBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetBalance}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).GetBalance(ctx, req.(*GetBalanceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listEntriesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListEntriesRequest)
	if err := dec(in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if interceptor == nil {
		return srv.(LedgerServer).ListEntries(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListEntries}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).ListEntries(ctx, req.(*ListEntriesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc describes ledger.v1.Ledger.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
		{MethodName: "GetBalance", Handler: getBalanceHandler},
		{MethodName: "ListEntries", Handler: listEntriesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "grpcapi/messages.go",
}

var _ LedgerServer = (*Server)(nil)
