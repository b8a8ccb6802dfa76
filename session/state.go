// Package session 为 session 作用域的组件提供存储和恢复
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/objects/object"
)

// ErrNotFound 会话不存在或已过期
var ErrNotFound = errors.New("session: 会话不存在")

// State 一个会话持久化的内容
type State struct {
	// Objects 组件名 -> Graph 中的身份键
	Objects   map[string]string `json:"objects"`
	Graph     object.Graph      `json:"graph"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// Encode 编码会话状态
func Encode(state *State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("session: failed to encode state: %w", err)
	}
	return data, nil
}

// Decode 解码会话状态，数值保留为 json.Number 交给反序列化按目标类型转换
func Decode(data []byte) (*State, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var state State
	if err := dec.Decode(&state); err != nil {
		return nil, fmt.Errorf("session: failed to decode state: %w", err)
	}
	if state.Objects == nil {
		state.Objects = make(map[string]string)
	}
	return &state, nil
}
