package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full method names of the efris.v1.Reports service.
const (
	ReportsIngestFullMethodName = "/efris.v1.Reports/Ingest"
	ReportsListFullMethodName   = "/efris.v1.Reports/List"
	ReportsExportFullMethodName = "/efris.v1.Reports/Export"
)

// ReportsServer is the server API for the efris.v1.Reports service.
// Messages are protobuf well-known types, so no generated stubs are needed.
type ReportsServer interface {
	// Ingest runs one batch. Request fields: paths, documents [{name, content}],
	// defaults {region, risk_source, activity, tax_head}, skip_hidden.
	Ingest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// List returns stored reports and a summary. Request fields: tin,
	// assessment, from, to (YYYY-MM-DD), limit.
	List(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Export takes the List filters plus format (csv|xlsx) and returns the file.
	Export(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

// UnimplementedReportsServer can be embedded to have forward compatible implementations.
type UnimplementedReportsServer struct{}

func (UnimplementedReportsServer) Ingest(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Ingest not implemented")
}
func (UnimplementedReportsServer) List(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method List not implemented")
}
func (UnimplementedReportsServer) Export(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Export not implemented")
}

func RegisterReportsServer(s grpc.ServiceRegistrar, srv ReportsServer) {
	s.RegisterService(&Reports_ServiceDesc, srv)
}

func _Reports_Ingest_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportsServer).Ingest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReportsIngestFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReportsServer).Ingest(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Reports_List_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportsServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReportsListFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReportsServer).List(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Reports_Export_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportsServer).Export(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReportsExportFullMethodName}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ReportsServer).Export(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Reports_ServiceDesc is the grpc.ServiceDesc for the efris.v1.Reports service.
var Reports_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "efris.v1.Reports",
	HandlerType: (*ReportsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ingest", Handler: _Reports_Ingest_Handler},
		{MethodName: "List", Handler: _Reports_List_Handler},
		{MethodName: "Export", Handler: _Reports_Export_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "efris/v1/reports.proto",
}

// ReportsClient is the client API for the efris.v1.Reports service.
type ReportsClient interface {
	Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type reportsClient struct {
	cc grpc.ClientConnInterface
}

func NewReportsClient(cc grpc.ClientConnInterface) ReportsClient {
	return &reportsClient{cc}
}

func (c *reportsClient) Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ReportsIngestFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reportsClient) List(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ReportsListFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *reportsClient) Export(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, ReportsExportFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
