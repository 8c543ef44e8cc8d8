package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "mjolnir.valuation.v1.ValuationService"

// ValuationServiceServer is the server API for the valuation service.
// Requests and responses are google.protobuf.Struct messages; decimals travel as
// strings and timestamps as RFC 3339 strings.
type ValuationServiceServer interface {
	GetNetWorth(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAssetBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTopPerformers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistoricalNetWorth(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetQuantityHeld(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCostBasis(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(ValuationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ValuationServiceDesc describes the valuation service for grpc.Server registration
var ValuationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValuationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetNetWorth", Handler: unaryHandler("GetNetWorth", ValuationServiceServer.GetNetWorth)},
		{MethodName: "GetAssetBreakdown", Handler: unaryHandler("GetAssetBreakdown", ValuationServiceServer.GetAssetBreakdown)},
		{MethodName: "GetTopPerformers", Handler: unaryHandler("GetTopPerformers", ValuationServiceServer.GetTopPerformers)},
		{MethodName: "GetHistoricalNetWorth", Handler: unaryHandler("GetHistoricalNetWorth", ValuationServiceServer.GetHistoricalNetWorth)},
		{MethodName: "GetQuantityHeld", Handler: unaryHandler("GetQuantityHeld", ValuationServiceServer.GetQuantityHeld)},
		{MethodName: "GetCostBasis", Handler: unaryHandler("GetCostBasis", ValuationServiceServer.GetCostBasis)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mjolnir/valuation/v1/valuation.proto",
}

// RegisterValuationServiceServer registers srv with the gRPC server
func RegisterValuationServiceServer(s grpc.ServiceRegistrar, srv ValuationServiceServer) {
	s.RegisterService(&ValuationServiceDesc, srv)
}

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ValuationServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ValuationServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ValuationServiceClient is the client API for the valuation service
type ValuationServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewValuationServiceClient creates a client bound to cc
func NewValuationServiceClient(cc grpc.ClientConnInterface) *ValuationServiceClient {
	return &ValuationServiceClient{cc: cc}
}

// Call invokes method with req and returns the decoded response
func (c *ValuationServiceClient) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
