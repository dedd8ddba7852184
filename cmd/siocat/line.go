package main

import (
	"encoding/base64"
	"strings"

	"github.com/go-errors/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/yaoapp/siobridge/socketio"
)

// parseLine split a stdin line into the event name and the arguments
//
//	hello "world" 42 true null
//	upload {"base64":"AQID"}
func parseLine(line string) (string, []socketio.Value, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return name, []socketio.Value{}, nil
	}

	raw := []interface{}{}
	decoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(strings.NewReader(rest))
	for decoder.More() {
		var v interface{}
		if err := decoder.Decode(&v); err != nil {
			return "", nil, errors.Errorf("%s: invalid arguments %s", name, err.Error())
		}
		raw = append(raw, v)
	}

	args := make([]socketio.Value, 0, len(raw))
	for i, v := range raw {
		value, err := valueOf(v)
		if err != nil {
			return "", nil, errors.Errorf("%s: argument %d %s", name, i, err.Error())
		}
		args = append(args, value)
	}
	return name, args, nil
}

func valueOf(v interface{}) (socketio.Value, error) {
	switch value := v.(type) {
	case nil:
		return socketio.Null(), nil

	case bool:
		return socketio.NewBoolean(value), nil

	case string:
		return socketio.NewString(value), nil

	case float64:
		return socketio.NewNumber(value), nil

	case map[string]interface{}:
		encoded, ok := value["base64"].(string)
		if !ok || len(value) != 1 {
			break
		}
		buf, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return socketio.Undefined(), err
		}
		return socketio.NewArrayBuffer(buf), nil
	}

	return socketio.Undefined(), errors.Errorf("is not supported (%T)", v)
}
