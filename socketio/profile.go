package socketio

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-errors/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/yaoapp/kun/exception"
	"github.com/yaoapp/siobridge/sio"
	"gopkg.in/yaml.v3"
)

// Profiles the loaded connection profiles
var Profiles = map[string]*Profile{}

var profilesMutex sync.RWMutex

// Load load a connection profile, the source is a "file://" path
// (json, yao, yml, yaml) or an inline json text
func Load(source string, name string) (*Profile, error) {
	var data []byte
	file := "inline.json"
	if strings.HasPrefix(source, "file://") {
		file = strings.TrimPrefix(source, "file://")
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		data = content
	} else {
		data = []byte(source)
	}

	profile := Profile{}
	if err := parse(file, data, &profile); err != nil {
		return nil, err
	}

	if profile.URL == "" {
		return nil, errors.Errorf("[Profile] %s the url is required", name)
	}

	profile.ID = name
	if profile.Name == "" {
		profile.Name = name
	}

	profilesMutex.Lock()
	defer profilesMutex.Unlock()
	Profiles[name] = &profile
	return Profiles[name], nil
}

// Select get a loaded profile, throws an exception when not found
func Select(name string) *Profile {
	profilesMutex.RLock()
	defer profilesMutex.RUnlock()
	profile, has := Profiles[name]
	if !has {
		exception.New("Socket.IO profile %s does not load", 404, name).Throw()
	}
	return profile
}

// Option the native options of the profile
func (profile *Profile) Option() sio.Option {
	option := sio.Option{
		Path:      profile.Path,
		Namespace: profile.Namespace,
		Attempts:  DefaultAttempts,
		Headers:   profile.Headers,
	}

	if profile.Attempts != nil {
		option.Attempts = *profile.Attempts
	}

	if profile.AttemptAfter > 0 {
		option.AttemptAfter = time.Duration(profile.AttemptAfter) * time.Second
	}

	if profile.Timeout > 0 {
		option.Timeout = time.Duration(profile.Timeout) * time.Second
	}

	return option
}

func parse(name string, data []byte, v interface{}) error {
	ext := filepath.Ext(name)
	switch ext {
	case ".json", ".yao":
		if err := jsoniter.Unmarshal(data, v); err != nil {
			return errors.Errorf("[Profile] %s Error %s", name, err.Error())
		}
		return nil

	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return errors.Errorf("[Profile] %s Error %s", name, err.Error())
		}
		return nil
	}

	return errors.Errorf("[Profile] %s Error %s does not support", name, ext)
}
