package api

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec 让 gRPC 直接以 JSON 编码收发消息。环境服务的消息都是
// 小而扁平的结构体，不维护 protoc 生成的桩代码，Python 端学习器用
// 任意 JSON 序列化器即可对接。
type jsonCodec struct{}

// Marshal 实现 encoding.Codec 接口。
func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal 实现 encoding.Codec 接口。
func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// Name 实现 encoding.Codec 接口。
func (jsonCodec) Name() string {
	return "json"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
