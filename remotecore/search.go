package remotecore

import (
	"context"

	"bringyour.com/coresync/core"
	"bringyour.com/coresync/remote"
)

const (
	methodAutoCompleteSuggestions = "AutoCompleteSuggestions"
	methodResults                 = "Results"
)

type RemoteSearch struct {
	remoteEntity

	realSearch core.Search
}

func newRemoteSearch(registry *Registry, descriptor remote.Descriptor, real core.Search, detached bool) (*RemoteSearch, error) {
	search := &RemoteSearch{
		realSearch: real,
	}
	declaration := &remote.Declaration{
		Methods: []*remote.Method{
			{
				Name: methodAutoCompleteSuggestions,
				Invoke: func(ctx context.Context, args []any) (any, error) {
					return real.AutoCompleteSuggestions(ctx, remote.AsString(argAt(args, 0)))
				},
			},
			{
				Name: methodResults,
				Invoke: func(ctx context.Context, args []any) (any, error) {
					results, err := real.Results(ctx, remote.AsString(argAt(args, 0)))
					if err != nil {
						return nil, err
					}
					return entityValue(registry, KindPlayableCollectionGroup, results), nil
				},
			},
		},
	}
	if err := search.init(registry, descriptor, real, detached, declaration); err != nil {
		return nil, err
	}
	return search, nil
}

// the history is a singleton of the search
func (self *RemoteSearch) SearchHistory() core.SearchHistory {
	var real core.Entity
	if self.realSearch != nil {
		history := self.realSearch.SearchHistory()
		if history == nil {
			return nil
		}
		real = history
	} else if self.memberRemote.IsDetached() {
		return nil
	}
	e, err := self.registry.wrapSingleton(KindSearchHistory, self.sourceInstanceId, real)
	if err != nil {
		return nil
	}
	return e.(*RemotePlayableCollectionGroup)
}

func (self *RemoteSearch) AutoCompleteSuggestions(ctx context.Context, query string) ([]string, error) {
	value, err := self.memberRemote.Invoke(ctx, methodAutoCompleteSuggestions, query)
	if err != nil {
		return nil, err
	}
	return remote.AsStrings(value), nil
}

func (self *RemoteSearch) Results(ctx context.Context, query string) (core.PlayableCollectionGroup, error) {
	value, err := self.memberRemote.Invoke(ctx, methodResults, query)
	if err != nil {
		return nil, err
	}
	descriptor, ok := remote.AsDescriptor(value)
	if !ok {
		return nil, nil
	}
	if group, ok := self.registry.entity(descriptor).(core.PlayableCollectionGroup); ok {
		return group, nil
	}
	return nil, nil
}
