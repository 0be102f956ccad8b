package board

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/diffdrive/logging"
)

// A Constructor builds a board from its config.
type Constructor func(ctx context.Context, conf Config, logger logging.Logger) (Board, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register makes a board model available to New. It panics if the model is registered twice.
func Register(model string, constructor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, old := registry[model]; old {
		panic(fmt.Sprintf("trying to register two boards with same model %q", model))
	}
	if constructor == nil {
		panic(fmt.Sprintf("cannot register a nil constructor for board model %q", model))
	}
	registry[model] = constructor
}

// IsRegistered reports whether a model has been registered.
func IsRegistered(model string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[model]
	return ok
}

// Models returns the registered model names, sorted.
func Models() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	models := lo.Keys(registry)
	sort.Strings(models)
	return models
}

// New builds a board with the constructor registered for conf.Model.
func New(ctx context.Context, conf Config, logger logging.Logger) (Board, error) {
	registryMu.RLock()
	constructor, ok := registry[conf.Model]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown board model %q, expected one of %v", conf.Model, Models())
	}

	b, err := constructor(ctx, conf, logger.Sublogger(conf.Model))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create %s board", conf.Model)
	}
	return b, nil
}
