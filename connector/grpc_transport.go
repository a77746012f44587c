package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/beeeon/gateway/model"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CompressionThreshold is the frame size, in bytes, above which an
// outbound message is zstd-compressed, grounded on the teacher's
// compression/zstd encoder/decoder pool (compression/zstd/zstd.go).
const CompressionThreshold = 8 * 1024

const codecName = "beeeon-gwmessage"

// wireFrame is the JSON envelope carried by every gRPC message on the
// GatewayLink stream: spec.md §6 fixes the JSON shape of GWMessage, so the
// frame holds that JSON as Payload and only adds whether it was
// compressed.
type wireFrame struct {
	Compressed bool
	Payload    []byte
}

func init() {
	encoding.RegisterCodec(gwMessageCodec{})
}

// gwMessageCodec lets the gRPC stream transport model.GWMessage values
// directly, without a generated .proto stub: the wire bytes are the JSON
// encoding of a wireFrame whose Payload is the spec's JSON GWMessage
// encoding (optionally zstd-compressed), framed like any other gRPC
// message by the runtime's length-prefixing.
type gwMessageCodec struct{}

func (gwMessageCodec) Name() string { return codecName }

func (gwMessageCodec) Marshal(v any) ([]byte, error) {
	msg, ok := v.(*model.GWMessage)
	if !ok {
		return nil, fmt.Errorf("beeeon-gwmessage: unexpected type %T", v)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	frame := wireFrame{Payload: body}
	if len(body) > CompressionThreshold {
		compressed, err := compress(body)
		if err == nil {
			frame = wireFrame{Compressed: true, Payload: compressed}
		}
	}

	return json.Marshal(frame)
}

func (gwMessageCodec) Unmarshal(data []byte, v any) error {
	msg, ok := v.(*model.GWMessage)
	if !ok {
		return fmt.Errorf("beeeon-gwmessage: unexpected type %T", v)
	}

	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}

	body := frame.Payload
	if frame.Compressed {
		plain, err := decompress(body)
		if err != nil {
			return err
		}
		body = plain
	}

	return json.Unmarshal(body, msg)
}

func compress(body []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(body, nil), nil
}

func decompress(body []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(body, nil)
}

// linkServiceDesc describes the single bidirectional-streaming RPC
// GatewayLink.Link, hand-written instead of protoc-generated since the
// wire payload is JSON framed through gwMessageCodec rather than a
// protobuf message set.
var linkServiceDesc = grpc.ServiceDesc{
	ServiceName: "beeeon.gateway.GatewayLink",
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Link",
			ClientStreams: true,
			ServerStreams: true,
		},
	},
}

// GRPCTransport is the outbound Transport over a single bidirectional
// gRPC stream, grounded on the teacher's gRPC exporter client
// (exporter.go's dialer + credentials + stream lifecycle).
type GRPCTransport struct {
	conn   *grpc.ClientConn
	stream grpc.ClientStream
}

// DialGRPC opens conn and establishes the GatewayLink stream.
func DialGRPC(ctx context.Context, target string, dialOpts ...grpc.DialOption) (*GRPCTransport, error) {
	conn, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}

	stream, err := conn.NewStream(ctx, &linkServiceDesc.Streams[0],
		"/"+linkServiceDesc.ServiceName+"/Link",
		grpc.CallContentSubtype(codecName))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &GRPCTransport{conn: conn, stream: stream}, nil
}

func (t *GRPCTransport) Send(ctx context.Context, msg model.GWMessage) error {
	return t.stream.SendMsg(&msg)
}

func (t *GRPCTransport) Recv(ctx context.Context) (model.GWMessage, error) {
	var msg model.GWMessage
	if err := t.stream.RecvMsg(&msg); err != nil {
		if err == io.EOF {
			return msg, err
		}
		return msg, err
	}
	return msg, nil
}

func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}

var _ Transport = (*GRPCTransport)(nil)
