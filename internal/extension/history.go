package extension

import (
	"time"

	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/logging"
	"github.com/k4bek4be/unrealircd/internal/module"
)

// HistoryBackend is a registered history storage backend (eg: "mem").
type HistoryBackend struct {
	Meta
	// SetLimit imposes a line/time limit on a history object.
	SetLimit func(object string, maxLines int, maxTime time.Duration) error
	// Add appends a line with its message tags to a history object.
	Add func(object string, tags map[string]string, line string) error
	// Request replays history for a client, narrowed by filter.
	Request func(client *domain.Client, object string, filter *domain.HistoryFilter) error
	// Destroy removes a history object completely.
	Destroy func(object string) error
}

// HistoryBackendRequest describes a history backend registration. All
// four callbacks are required.
type HistoryBackendRequest struct {
	Name     string
	SetLimit func(object string, maxLines int, maxTime time.Duration) error
	Add      func(object string, tags map[string]string, line string) error
	Request  func(client *domain.Client, object string, filter *domain.HistoryFilter) error
	Destroy  func(object string) error
}

// HistoryBackends is the history backend registry.
type HistoryBackends struct {
	*Registry[*HistoryBackend]
}

// NewHistoryBackends creates the history backend registry.
func NewHistoryBackends(log *logging.Logger, state rehashState, notify Notifier) *HistoryBackends {
	return &HistoryBackends{newRegistry[*HistoryBackend]("history-backend", true, log, state, notify)}
}

// Add registers or revives a history backend. Missing callbacks are a
// defect in the calling module and panic at load time.
func (r *HistoryBackends) Add(owner *module.Module, req HistoryBackendRequest) (*HistoryBackend, error) {
	if req.SetLimit == nil || req.Add == nil || req.Request == nil || req.Destroy == nil {
		panic("HistoryBackends.Add: all four backend callbacks are required")
	}
	hb, err := r.add(owner, req.Name, func() *HistoryBackend { return &HistoryBackend{} })
	if err != nil {
		return nil, err
	}
	hb.SetLimit = req.SetLimit
	hb.Add = req.Add
	hb.Request = req.Request
	hb.Destroy = req.Destroy
	return hb, nil
}
