package sio

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/go-errors/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/yaoapp/siobridge/message"
)

var jsonNumber = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// NewPacket create a packet without ack
func NewPacket(kind PacketType, namespace string, data interface{}) *Packet {
	return &Packet{Type: kind, Namespace: namespace, ID: -1, Data: data}
}

// Encode encodes the packet to the text frame and the binary attachments
func (p *Packet) Encode() (string, [][]byte, error) {

	buffers := [][]byte{}
	data := deconstruct(p.Data, &buffers)

	kind := p.Type
	if len(buffers) > 0 {
		switch kind {
		case PacketEvent:
			kind = PacketBinaryEvent
		case PacketAck:
			kind = PacketBinaryAck
		}
	}

	var builder strings.Builder
	builder.WriteString(strconv.Itoa(int(kind)))

	if kind == PacketBinaryEvent || kind == PacketBinaryAck {
		builder.WriteString(strconv.Itoa(len(buffers)))
		builder.WriteByte('-')
	}

	if p.Namespace != "" && p.Namespace != "/" {
		builder.WriteString(p.Namespace)
		builder.WriteByte(',')
	}

	if p.ID >= 0 {
		builder.WriteString(strconv.Itoa(p.ID))
	}

	if data != nil {
		bytes, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(data)
		if err != nil {
			return "", nil, errors.Errorf("failed to marshal packet data: %w", err)
		}
		builder.Write(bytes)
	}

	return builder.String(), buffers, nil
}

// DecodePacket decodes a socket.io packet from the text frame
func DecodePacket(data string) (*Packet, error) {
	if len(data) == 0 {
		return nil, errors.Errorf("empty packet")
	}

	packet := &Packet{Namespace: "/", ID: -1}
	pos := 0

	if data[pos] < '0' || data[pos] > '6' {
		return nil, errors.Errorf("invalid packet type: %c", data[pos])
	}
	packet.Type = PacketType(data[pos] - '0')
	pos++

	// the number of attachments
	if packet.Type == PacketBinaryEvent || packet.Type == PacketBinaryAck {
		end := strings.IndexByte(data[pos:], '-')
		if end == -1 {
			return nil, errors.Errorf("invalid binary packet: missing attachments")
		}
		num, err := strconv.Atoi(data[pos : pos+end])
		if err != nil {
			return nil, errors.Errorf("invalid binary packet: %w", err)
		}
		packet.Attachments = num
		pos += end + 1
	}

	if pos >= len(data) {
		return packet, nil
	}

	// namespace
	if data[pos] == '/' {
		end := strings.IndexByte(data[pos:], ',')
		if end == -1 {
			packet.Namespace = data[pos:]
			return packet, nil
		}
		packet.Namespace = data[pos : pos+end]
		pos += end + 1
	}

	if pos >= len(data) {
		return packet, nil
	}

	// ack id
	if data[pos] >= '0' && data[pos] <= '9' {
		end := pos
		for end < len(data) && data[end] >= '0' && data[end] <= '9' {
			end++
		}
		id, err := strconv.Atoi(data[pos:end])
		if err != nil {
			return nil, errors.Errorf("invalid ack id: %w", err)
		}
		packet.ID = id
		pos = end
	}

	if pos >= len(data) {
		return packet, nil
	}

	if err := jsonNumber.Unmarshal([]byte(data[pos:]), &packet.Data); err != nil {
		return nil, errors.Errorf("failed to unmarshal packet data: %w", err)
	}

	return packet, nil
}

// Attach add a binary attachment, returns true when all attachments arrived
func (p *Packet) Attach(data []byte) bool {
	buf := make([]byte, len(data))
	copy(buf, data)
	p.Buffers = append(p.Buffers, buf)
	return len(p.Buffers) >= p.Attachments
}

// Complete reports whether the packet has all its attachments
func (p *Packet) Complete() bool {
	return len(p.Buffers) >= p.Attachments
}

// Reconstruct replace the placeholders with the attachments
func (p *Packet) Reconstruct() error {
	if p.Attachments == 0 {
		return nil
	}
	data, err := reconstruct(p.Data, p.Buffers)
	if err != nil {
		return err
	}
	p.Data = data
	return nil
}

// Messages the packet data as a message list
func (p *Packet) Messages() message.List {
	list := message.List{}
	items, ok := p.Data.([]interface{})
	if !ok {
		if p.Data != nil {
			list.Push(toMessage(p.Data))
		}
		return list
	}
	for _, item := range items {
		list.Push(toMessage(item))
	}
	return list
}

func deconstruct(value interface{}, buffers *[][]byte) interface{} {
	switch v := value.(type) {
	case []byte:
		placeholder := map[string]interface{}{"_placeholder": true, "num": len(*buffers)}
		*buffers = append(*buffers, v)
		return placeholder

	case []interface{}:
		res := make([]interface{}, 0, len(v))
		for _, item := range v {
			res = append(res, deconstruct(item, buffers))
		}
		return res

	case map[string]interface{}:
		res := make(map[string]interface{}, len(v))
		for key, item := range v {
			res[key] = deconstruct(item, buffers)
		}
		return res
	}
	return value
}

func reconstruct(value interface{}, buffers [][]byte) (interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		res := make([]interface{}, 0, len(v))
		for _, item := range v {
			item, err := reconstruct(item, buffers)
			if err != nil {
				return nil, err
			}
			res = append(res, item)
		}
		return res, nil

	case map[string]interface{}:
		if placeholder, ok := v["_placeholder"].(bool); ok && placeholder {
			num, err := toInt(v["num"])
			if err != nil {
				return nil, errors.Errorf("invalid placeholder: %w", err)
			}
			if num < 0 || num >= len(buffers) {
				return nil, errors.Errorf("invalid placeholder: attachment %d of %d", num, len(buffers))
			}
			return buffers[num], nil
		}

		res := make(map[string]interface{}, len(v))
		for key, item := range v {
			item, err := reconstruct(item, buffers)
			if err != nil {
				return nil, err
			}
			res[key] = item
		}
		return res, nil
	}
	return value, nil
}

func toInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	case float64:
		return int(v), nil
	case int:
		return v, nil
	}
	return 0, errors.Errorf("%v is not a number", value)
}

// toData cast a message to the packet data
func toData(msg *message.Message) interface{} {
	switch msg.Flag() {
	case message.FlagBoolean:
		return msg.GetBool()
	case message.FlagInteger:
		return msg.GetInt()
	case message.FlagDouble:
		return msg.GetDouble()
	case message.FlagString:
		return msg.GetString()
	case message.FlagBinary:
		return msg.GetBinary()
	case message.FlagArray:
		items := msg.GetArray()
		res := make([]interface{}, 0, len(items))
		for _, item := range items {
			res = append(res, toData(item))
		}
		return res
	case message.FlagObject:
		fields := msg.GetMap()
		res := make(map[string]interface{}, len(fields))
		for key, item := range fields {
			res[key] = toData(item)
		}
		return res
	}
	return nil
}

// toMessage cast the packet data to a message
func toMessage(value interface{}) *message.Message {
	switch v := value.(type) {
	case nil:
		return message.Null()
	case bool:
		return message.Boolean(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return message.Integer(n)
		}
		f, err := v.Float64()
		if err != nil {
			return message.Null()
		}
		return message.Double(f)
	case float64:
		return message.Double(v)
	case int:
		return message.Integer(int64(v))
	case int64:
		return message.Integer(v)
	case string:
		return message.String(v)
	case []byte:
		return message.Binary(v)
	case []interface{}:
		items := make([]*message.Message, 0, len(v))
		for _, item := range v {
			items = append(items, toMessage(item))
		}
		return message.Array(items...)
	case map[string]interface{}:
		fields := make(map[string]*message.Message, len(v))
		for key, item := range v {
			fields[key] = toMessage(item)
		}
		return message.Object(fields)
	}
	return message.Null()
}

// eventData the EVENT packet data: [name, args...]
func eventData(name string, args message.List) []interface{} {
	data := make([]interface{}, 0, len(args)+1)
	data = append(data, name)
	for _, arg := range args {
		data = append(data, toData(arg))
	}
	return data
}

// ackData the ACK packet data: [args...]
func ackData(args message.List) []interface{} {
	data := make([]interface{}, 0, len(args))
	for _, arg := range args {
		data = append(data, toData(arg))
	}
	return data
}
