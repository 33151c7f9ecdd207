package stubapi

import (
	"net/http"
	"sync"
	"sync/atomic"

	goerrors "github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"
)

// Action names one endpoint of a resource.
type Action string

// Endpoint actions.
const (
	ActionList    Action = "list"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReorder Action = "reorder"
)

// Fault makes an endpoint fail with Status. Times limits how many requests
// fail; zero fails until cleared.
type Fault struct {
	Status  int
	Message string
	Times   int
}

type armedFault struct {
	Fault
	served int
}

// Faults holds injected failures and counts requests per endpoint.
type Faults struct {
	mu    sync.Mutex
	armed map[string]*armedFault
	hits  *xsync.MapOf[string, *atomic.Int64]
}

// NewFaults returns an empty fault table.
func NewFaults() *Faults {
	return &Faults{
		armed: make(map[string]*armedFault),
		hits:  xsync.NewMapOf[string, *atomic.Int64](),
	}
}

// Inject arms fault for action on resource.
func (f *Faults) Inject(action Action, resource string, fault Fault) {
	if fault.Status == 0 {
		fault.Status = http.StatusInternalServerError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed[endpoint(action, resource)] = &armedFault{Fault: fault}
}

// Clear disarms every fault.
func (f *Faults) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = make(map[string]*armedFault)
}

// Hits returns how many requests reached action on resource.
func (f *Faults) Hits(action Action, resource string) int {
	counter, ok := f.hits.Load(endpoint(action, resource))
	if !ok {
		return 0
	}
	return int(counter.Load())
}

// check counts the request and returns the injected error, if any.
func (f *Faults) check(action Action, resource string) error {
	key := endpoint(action, resource)
	counter, _ := f.hits.LoadOrCompute(key, func() *atomic.Int64 { return new(atomic.Int64) })
	counter.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()
	armed, ok := f.armed[key]
	if !ok {
		return nil
	}
	armed.served++
	if armed.Times > 0 && armed.served >= armed.Times {
		delete(f.armed, key)
	}

	message := armed.Message
	if message == "" {
		message = http.StatusText(armed.Status)
	}
	return goerrors.New(message, goerrors.HTTPStatusToCategory(armed.Status)).
		WithCode(armed.Status).
		WithTextCode("INJECTED_FAULT")
}

func endpoint(action Action, resource string) string {
	return string(action) + " " + resource
}
