package grpcapi

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "xrcfg.v1.ConfigService"

// ConfigServiceServer is the server API for the config service. Requests
// and responses are protobuf well-known types; structured results travel
// as structpb.Struct with the same field names as the REST API.
type ConfigServiceServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ParseConfig(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	AnalyzeConfig(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GenerateChangeConfig(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetConfig(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	SetChange(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Commit(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Rollback(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	CommitCheck(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetCandidate(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	ShowCompare(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	ShowRollback(context.Context, *wrapperspb.Int32Value) (*wrapperspb.StringValue, error)
	ListHistory(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	RecentEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// unary builds the method descriptor for one RPC.
func unary[Req any, P interface {
	*Req
	proto.Message
}](method string, call func(ConfigServiceServer, context.Context, P) (proto.Message, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := P(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ConfigServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ConfigServiceServer), ctx, req.(P))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConfigServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary[emptypb.Empty]("GetStatus", func(s ConfigServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.GetStatus(ctx, in)
		}),
		unary[wrapperspb.StringValue]("ParseConfig", func(s ConfigServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.ParseConfig(ctx, in)
		}),
		unary[wrapperspb.StringValue]("AnalyzeConfig", func(s ConfigServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.AnalyzeConfig(ctx, in)
		}),
		unary[structpb.Struct]("GenerateChangeConfig", func(s ConfigServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.GenerateChangeConfig(ctx, in)
		}),
		unary[wrapperspb.StringValue]("GetConfig", func(s ConfigServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.GetConfig(ctx, in)
		}),
		unary[wrapperspb.StringValue]("SetChange", func(s ConfigServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.SetChange(ctx, in)
		}),
		unary[wrapperspb.StringValue]("Commit", func(s ConfigServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
			return s.Commit(ctx, in)
		}),
		unary[wrapperspb.Int32Value]("Rollback", func(s ConfigServiceServer, ctx context.Context, in *wrapperspb.Int32Value) (proto.Message, error) {
			return s.Rollback(ctx, in)
		}),
		unary[emptypb.Empty]("CommitCheck", func(s ConfigServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.CommitCheck(ctx, in)
		}),
		unary[emptypb.Empty]("GetCandidate", func(s ConfigServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.GetCandidate(ctx, in)
		}),
		unary[wrapperspb.Int32Value]("ShowRollback", func(s ConfigServiceServer, ctx context.Context, in *wrapperspb.Int32Value) (proto.Message, error) {
			return s.ShowRollback(ctx, in)
		}),
		unary[emptypb.Empty]("ShowCompare", func(s ConfigServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.ShowCompare(ctx, in)
		}),
		unary[emptypb.Empty]("ListHistory", func(s ConfigServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
			return s.ListHistory(ctx, in)
		}),
		unary[structpb.Struct]("RecentEvents", func(s ConfigServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
			return s.RecentEvents(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "xrcfg/v1/config.proto",
}

// RegisterConfigServiceServer registers srv with s.
func RegisterConfigServiceServer(s grpc.ServiceRegistrar, srv ConfigServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Client is the client API for the config service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any, P interface {
	*Resp
	proto.Message
}](ctx context.Context, c *Client, method string, in proto.Message, opts ...grpc.CallOption) (P, error) {
	out := P(new(Resp))
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, "GetStatus", &emptypb.Empty{}, opts...)
}

func (c *Client) ParseConfig(ctx context.Context, text string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, "ParseConfig", wrapperspb.String(text), opts...)
}

func (c *Client) AnalyzeConfig(ctx context.Context, text string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, "AnalyzeConfig", wrapperspb.String(text), opts...)
}

// GenerateChangeConfig generates the commands of change against base, or
// against the active configuration when base is empty.
func (c *Client) GenerateChangeConfig(ctx context.Context, base, change string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"base": base, "change": change})
	if err != nil {
		return nil, err
	}
	return invoke[structpb.Struct](ctx, c, "GenerateChangeConfig", in, opts...)
}

// GetConfig returns the active configuration in format ("text",
// "simplified", "lint" or "flat").
func (c *Client) GetConfig(ctx context.Context, format string, opts ...grpc.CallOption) (string, error) {
	out, err := invoke[wrapperspb.StringValue](ctx, c, "GetConfig", wrapperspb.String(format), opts...)
	if err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// SetChange sets the candidate change and returns its preview.
func (c *Client) SetChange(ctx context.Context, change string, opts ...grpc.CallOption) (string, error) {
	out, err := invoke[wrapperspb.StringValue](ctx, c, "SetChange", wrapperspb.String(change), opts...)
	if err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) Commit(ctx context.Context, comment string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, "Commit", wrapperspb.String(comment), opts...)
}

func (c *Client) Rollback(ctx context.Context, n int32, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, "Rollback", wrapperspb.Int32(n), opts...)
}

// CommitCheck validates the candidate change without applying it.
func (c *Client) CommitCheck(ctx context.Context, opts ...grpc.CallOption) error {
	_, err := invoke[emptypb.Empty](ctx, c, "CommitCheck", &emptypb.Empty{}, opts...)
	return err
}

// GetCandidate returns the candidate change input.
func (c *Client) GetCandidate(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out, err := invoke[wrapperspb.StringValue](ctx, c, "GetCandidate", &emptypb.Empty{}, opts...)
	if err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// ShowRollback returns the diff between the active configuration and
// rollback n.
func (c *Client) ShowRollback(ctx context.Context, n int32, opts ...grpc.CallOption) (string, error) {
	out, err := invoke[wrapperspb.StringValue](ctx, c, "ShowRollback", wrapperspb.Int32(n), opts...)
	if err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) ShowCompare(ctx context.Context, opts ...grpc.CallOption) (string, error) {
	out, err := invoke[wrapperspb.StringValue](ctx, c, "ShowCompare", &emptypb.Empty{}, opts...)
	if err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) ListHistory(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c, "ListHistory", &emptypb.Empty{}, opts...)
}

// RecentEvents returns up to limit events matching the filter fields
// ("type", "source", "interface"); empty values match everything.
func (c *Client) RecentEvents(ctx context.Context, limit int, filter map[string]string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	fields := map[string]any{"limit": limit}
	for k, v := range filter {
		fields[k] = v
	}
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return invoke[structpb.Struct](ctx, c, "RecentEvents", in, opts...)
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("result is not an object: %w", err)
	}
	return structpb.NewStruct(m)
}

// DecodeStruct decodes s into v through its JSON encoding.
func DecodeStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ErrorKind returns the validation error kind carried by a gRPC error, or
// "" when there is none.
func ErrorKind(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			if k, ok := s.GetFields()["kind"]; ok {
				return k.GetStringValue()
			}
		}
	}
	return ""
}
