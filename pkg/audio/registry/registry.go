package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/xaionaro-go/noisefilter/pkg/audio/types"
)

type Factory[T any] interface {
	New() (T, error)
}

// FactoryFunc turns a constructor into a Factory.
type FactoryFunc[T any] func() (T, error)

func (fn FactoryFunc[T]) New() (T, error) {
	return fn()
}

type factoryWithPriority[T any] struct {
	Priority int
	Factory[T]
}

type registry[T any] struct {
	Locker    sync.Mutex
	Factories map[reflect.Type]factoryWithPriority[T]
}

func (r *registry[T]) register(priority int, key any, factory Factory[T]) {
	t := reflect.ValueOf(key).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.Locker.Lock()
	defer r.Locker.Unlock()
	if r.Factories == nil {
		r.Factories = map[reflect.Type]factoryWithPriority[T]{}
	}
	if _, ok := r.Factories[t]; ok {
		panic(fmt.Errorf("there is already registered a factory of type %v", t))
	}
	r.Factories[t] = factoryWithPriority[T]{
		Priority: priority,
		Factory:  factory,
	}
}

func (r *registry[T]) list() []Factory[T] {
	r.Locker.Lock()
	var factoriesWithPriorities []factoryWithPriority[T]
	for _, factory := range r.Factories {
		factoriesWithPriorities = append(factoriesWithPriorities, factory)
	}
	r.Locker.Unlock()

	sort.SliceStable(factoriesWithPriorities, func(i, j int) bool {
		return factoriesWithPriorities[i].Priority > factoriesWithPriorities[j].Priority
	})

	factories := make([]Factory[T], 0, len(factoriesWithPriorities))
	for _, factory := range factoriesWithPriorities {
		factories = append(factories, factory.Factory)
	}
	return factories
}

var (
	players   registry[types.PlayerPCM]
	recorders registry[types.RecorderPCM]
)

// RegisterPlayerFactory registers a player backend. The key identifies the
// backend; registering the same key type twice panics.
func RegisterPlayerFactory(
	priority int,
	key any,
	factory Factory[types.PlayerPCM],
) {
	players.register(priority, key, factory)
}

func RegisterRecorderFactory(
	priority int,
	key any,
	factory Factory[types.RecorderPCM],
) {
	recorders.register(priority, key, factory)
}

// PlayerFactories returns the registered player factories, the highest
// priority first.
func PlayerFactories() []Factory[types.PlayerPCM] {
	return players.list()
}

func RecorderFactories() []Factory[types.RecorderPCM] {
	return recorders.list()
}
