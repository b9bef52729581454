package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Full method names of moneytransfer.v1.TransferService
const (
	TransferServiceName                      = "moneytransfer.v1.TransferService"
	TransferService_SendMoney_FullMethodName = "/" + TransferServiceName + "/SendMoney"

	TransferService_GetAccountBalance_FullMethodName = "/" + TransferServiceName + "/GetAccountBalance"
)

// TransferServiceServer is the server API for moneytransfer.v1.TransferService.
//
// Messages are protobuf well-known types:
// SendMoney takes a Struct with string fields source_account_id, target_account_id and amount
// and answers whether the transfer was applied. GetAccountBalance takes the account ID and
// answers the balance as a decimal string.
type TransferServiceServer interface {
	SendMoney(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
	GetAccountBalance(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// RegisterTransferServiceServer registers srv on s
func RegisterTransferServiceServer(s grpc.ServiceRegistrar, srv TransferServiceServer) {
	s.RegisterService(&TransferService_ServiceDesc, srv)
}

func _TransferService_SendMoney_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServiceServer).SendMoney(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TransferService_SendMoney_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransferServiceServer).SendMoney(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _TransferService_GetAccountBalance_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TransferServiceServer).GetAccountBalance(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: TransferService_GetAccountBalance_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TransferServiceServer).GetAccountBalance(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// TransferService_ServiceDesc is the grpc.ServiceDesc for moneytransfer.v1.TransferService
var TransferService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TransferServiceName,
	HandlerType: (*TransferServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendMoney",
			Handler:    _TransferService_SendMoney_Handler,
		},
		{
			MethodName: "GetAccountBalance",
			Handler:    _TransferService_GetAccountBalance_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "moneytransfer/v1/transfer.proto",
}

// TransferServiceClient is the client API for moneytransfer.v1.TransferService
type TransferServiceClient interface {
	SendMoney(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	GetAccountBalance(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type transferServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewTransferServiceClient creates a client on cc
func NewTransferServiceClient(cc grpc.ClientConnInterface) TransferServiceClient {
	return &transferServiceClient{cc}
}

func (c *transferServiceClient) SendMoney(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, TransferService_SendMoney_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *transferServiceClient) GetAccountBalance(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, TransferService_GetAccountBalance_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
