// Package grpcapi implements the gRPC API server for xrcfgd.
package grpcapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/change"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/config"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/configstore"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/engine"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/logging"
	"github.com/kawaemon/ios-xr-switch-config-builder/pkg/simplify"
)

// Config configures the gRPC server.
type Config struct {
	Store    *configstore.Store
	EventBuf *logging.EventBuffer
	Version  string // software version string
}

// Server implements the ConfigService gRPC service.
type Server struct {
	store     *configstore.Store
	eventBuf  *logging.EventBuffer
	startTime time.Time
	addr      string
	version   string
}

// NewServer creates a new gRPC server.
func NewServer(addr string, cfg Config) *Server {
	store := cfg.Store
	if store == nil {
		store = configstore.New(nil)
	}
	return &Server{
		store:     store,
		eventBuf:  cfg.EventBuf,
		startTime: time.Now(),
		addr:      addr,
		version:   cfg.Version,
	}
}

// Run starts the gRPC server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gRPC listen: %w", err)
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	RegisterConfigServiceServer(srv, s)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	srv.GracefulStop()
	return nil
}

func (s *Server) record(rec logging.EventRecord) {
	if s.eventBuf == nil {
		return
	}
	rec.Source = "grpc"
	s.eventBuf.Add(rec)
}

// changeError converts a change or store failure to a status. Validation
// errors become InvalidArgument with the kind attached as a detail.
func (s *Server) changeError(err error) error {
	ve, ok := change.AsValidationError(err)
	if !ok {
		return status.Errorf(codes.FailedPrecondition, "%v", err)
	}
	s.record(logging.EventRecord{
		Type:      logging.EventReject,
		Kind:      ve.Kind.String(),
		Interface: ve.Interface,
		Line:      ve.Line,
		Message:   ve.Error(),
	})
	st := status.New(codes.InvalidArgument, ve.Error())
	detail, derr := structpb.NewStruct(map[string]any{
		"kind":      ve.Kind.String(),
		"interface": ve.Interface,
		"vlan":      ve.VLAN,
		"line":      ve.Line,
	})
	if derr != nil {
		return st.Err()
	}
	if withDetail, derr := st.WithDetails(detail); derr == nil {
		st = withDetail
	}
	return st.Err()
}

func (s *Server) ensureConfigure() {
	if !s.store.InConfigMode() {
		s.store.EnterConfigure()
	}
}

// --- Status ---

func (s *Server) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	m := s.store.Model()
	return structpb.NewStruct(map[string]any{
		"uptime":         time.Since(s.startTime).Truncate(time.Second).String(),
		"version":        s.version,
		"interfaces":     len(m.Interfaces),
		"bridge_domains": len(m.Domains),
		"config_mode":    s.store.InConfigMode(),
		"dirty":          s.store.IsDirty(),
		"history_size":   len(s.store.History()),
	})
}

// --- Stateless transformations ---

func (s *Server) ParseConfig(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	nodes := engine.ParseConfig(req.GetValue())
	if nodes == nil {
		nodes = []*config.Node{}
	}
	s.record(logging.EventRecord{
		Type:    logging.EventParse,
		Message: fmt.Sprintf("%d top-level nodes", len(nodes)),
	})
	return toStruct(map[string]any{"nodes": nodes})
}

func (s *Server) AnalyzeConfig(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	a := engine.AnalyzeConfig(req.GetValue())
	s.record(logging.EventRecord{
		Type:    logging.EventAnalyze,
		Message: fmt.Sprintf("%d bridge-domains, %d findings", len(a.Domains), len(a.Findings)),
	})
	return toStruct(a)
}

func (s *Server) GenerateChangeConfig(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	changeInput, ok := fields["change"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "change is required")
	}
	base := fields["base"].GetStringValue()
	if base == "" {
		base = s.store.ShowActive()
	}

	c, err := engine.GenerateChangeConfig(base, changeInput.GetStringValue())
	if err != nil {
		return nil, s.changeError(err)
	}
	s.record(logging.EventRecord{Type: logging.EventGenerate, Lines: c.Lines})
	return toStruct(c)
}

// --- Config lifecycle ---

func (s *Server) GetConfig(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	switch format := req.GetValue(); format {
	case "", "text":
		return wrapperspb.String(s.store.ShowActive()), nil
	case "simplified":
		return wrapperspb.String(simplify.Render(s.store.Model()).Text), nil
	case "lint":
		return wrapperspb.String(simplify.Render(s.store.Model()).LintText()), nil
	case "flat":
		return wrapperspb.String(config.Parse(s.store.ShowActive()).FormatFlat()), nil
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unsupported format %q", format)
	}
}

func (s *Server) SetChange(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	s.ensureConfigure()
	if err := s.store.SetChange(req.GetValue()); err != nil {
		return nil, s.changeError(err)
	}
	out, err := s.store.Preview()
	if err != nil {
		return nil, s.changeError(err)
	}
	return wrapperspb.String(out), nil
}

func (s *Server) Commit(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	s.ensureConfigure()
	res, err := s.store.Commit(ctx, req.GetValue())
	if err != nil {
		return nil, s.changeError(err)
	}
	if res.Output == "" {
		return structpb.NewStruct(map[string]any{"message": "no changes"})
	}
	s.record(logging.EventRecord{
		Type:     logging.EventCommit,
		CommitID: res.ID,
		Message:  req.GetValue(),
	})
	return structpb.NewStruct(map[string]any{
		"id":        res.ID,
		"timestamp": res.Timestamp.Format(time.RFC3339),
		"output":    res.Output,
	})
}

func (s *Server) Rollback(ctx context.Context, req *wrapperspb.Int32Value) (*structpb.Struct, error) {
	if req.GetValue() < 0 {
		return nil, status.Error(codes.InvalidArgument, "rollback index must not be negative")
	}
	s.ensureConfigure()
	res, err := s.store.Rollback(ctx, int(req.GetValue()))
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "%v", err)
	}
	if res == nil {
		return structpb.NewStruct(map[string]any{"message": "candidate change discarded"})
	}
	s.record(logging.EventRecord{Type: logging.EventRollback, CommitID: res.ID})
	return structpb.NewStruct(map[string]any{
		"id":      res.ID,
		"message": "rollback complete",
	})
}

func (s *Server) CommitCheck(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.ensureConfigure()
	if err := s.store.CommitCheck(); err != nil {
		return nil, s.changeError(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) GetCandidate(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(s.store.ShowCandidate()), nil
}

func (s *Server) ShowRollback(_ context.Context, req *wrapperspb.Int32Value) (*wrapperspb.StringValue, error) {
	if req.GetValue() < 1 {
		return nil, status.Error(codes.InvalidArgument, "rollback index must be at least 1")
	}
	diff, err := s.store.ShowRollback(int(req.GetValue()))
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "%v", err)
	}
	return wrapperspb.String(diff), nil
}

func (s *Server) ShowCompare(_ context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	s.ensureConfigure()
	diff, err := s.store.ShowCompare()
	if err != nil {
		return nil, s.changeError(err)
	}
	return wrapperspb.String(diff), nil
}

func (s *Server) ListHistory(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	entries := s.store.History()
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = map[string]any{
			"index":     i + 1,
			"id":        e.ID,
			"timestamp": e.Timestamp.Format(time.RFC3339),
			"comment":   e.Comment,
		}
	}
	return structpb.NewStruct(map[string]any{"entries": list})
}

// --- Events ---

func (s *Server) RecentEvents(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.eventBuf == nil {
		return nil, status.Error(codes.Unavailable, "event buffer not available")
	}
	fields := req.GetFields()
	limit := int(fields["limit"].GetNumberValue())
	if limit <= 0 {
		limit = 50
	}
	filter := logging.EventFilter{
		Type:      fields["type"].GetStringValue(),
		Source:    fields["source"].GetStringValue(),
		Interface: fields["interface"].GetStringValue(),
	}
	events := s.eventBuf.LatestFiltered(limit, filter)
	if events == nil {
		events = []logging.EventRecord{}
	}
	return toStruct(map[string]any{"events": events})
}
