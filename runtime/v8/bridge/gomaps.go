package bridge

import (
	"sync"

	"github.com/google/uuid"
)

// goMaps the Go objects referenced by JavaScript objects, keyed by id
var goMaps = struct {
	sync.RWMutex
	objects map[string]interface{}
}{
	objects: map[string]interface{}{},
}

// RegisterGoObject registers a Go object and returns a unique ID
// Remember to call ReleaseGoObject when the object is no longer needed
func RegisterGoObject(obj interface{}) string {
	return RegisterGoObjectWithID(uuid.NewString(), obj)
}

// RegisterGoObjectWithID registers a Go object with the given ID
func RegisterGoObjectWithID(id string, obj interface{}) string {
	goMaps.Lock()
	defer goMaps.Unlock()
	goMaps.objects[id] = obj
	return id
}

// GetGoObject retrieves a Go object by its ID, nil if not found
func GetGoObject(id string) interface{} {
	goMaps.RLock()
	defer goMaps.RUnlock()
	return goMaps.objects[id]
}

// ReleaseGoObject removes a Go object from the registry
func ReleaseGoObject(id string) {
	goMaps.Lock()
	defer goMaps.Unlock()
	delete(goMaps.objects, id)
}

// CountGoObjects returns the number of registered Go objects
func CountGoObjects() int {
	goMaps.RLock()
	defer goMaps.RUnlock()
	return len(goMaps.objects)
}
