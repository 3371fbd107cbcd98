// Package protocol 双工连接上的消息目录与编解码。
// 每条消息是一个扁平 JSON 对象，必带 "type" 字段。
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrMissingType  = errors.New("message has no type")
)

// Encode 序列化 payload，并把 type 字段写为 t（覆盖 payload 自带的值）
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, ErrMissingType
	}
	if payload == nil {
		return json.Marshal(Simple{Type: t})
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(pb, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: payload is not an object: %w", t, err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	tb, _ := json.Marshal(t)
	fields["type"] = tb
	return json.Marshal(fields)
}

// MustEncode 用于编码固定结构的下行消息，失败即编程错误
func MustEncode(t string, payload any) []byte {
	b, err := Encode(t, payload)
	if err != nil {
		panic(err)
	}
	return b
}

// DecodeType 只解析 type 判别字段
func DecodeType(b []byte) (string, error) {
	if len(b) == 0 {
		return "", ErrEmptyMessage
	}
	var s Simple
	if err := json.Unmarshal(b, &s); err != nil {
		return "", err
	}
	if s.Type == "" {
		return "", ErrMissingType
	}
	return s.Type, nil
}

// Decode 把整条消息解析为 T
func Decode[T any](b []byte) (T, error) {
	var out T
	if len(b) == 0 {
		return out, ErrEmptyMessage
	}
	err := json.Unmarshal(b, &out)
	return out, err
}

// Scores 把分数表转换为有序列表；order 决定输出顺序（加入顺序）
func Scores(order []string, scores map[string]int) []ScoreEntry {
	out := make([]ScoreEntry, 0, len(order))
	for _, id := range order {
		out = append(out, ScoreEntry{ID: id, Score: scores[id]})
	}
	return out
}
